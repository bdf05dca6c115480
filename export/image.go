package export

import (
	"context"
	"fmt"
)

func (e *Engine) exportImage(ctx context.Context, src Source, enc Encoding, path string) error {
	quality := 0
	if enc != EncodingPNG {
		quality = e.quality
	}
	data, err := src.Screenshot(ctx, enc, quality)
	if err != nil {
		return writeError(fmt.Sprintf("capture %s screenshot", enc), err)
	}
	return writeFile(path, data)
}
