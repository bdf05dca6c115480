package export

import "context"

func (e *Engine) exportPDF(ctx context.Context, src Source, path string) error {
	data, err := src.PDF(ctx)
	if err != nil {
		return writeError("print pdf", err)
	}
	return writeFile(path, data)
}
