package frontend

import (
	"fmt"

	"github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/relay"
)

// lowerPooling handles the windowed and global pooling variants.
//
// Global pooling in Keras yields a rank-2 (batch, channels) tensor, so
// the global variants fuse the spatial reduction with the flatten that
// restores that shape.
func lowerPooling(in relay.Expr, layer *keras.Layer) (relay.Expr, error) {
	switch layer.Kind {
	case keras.KindGlobalMaxPooling2D:
		return flattenPooled(relay.GlobalMaxPool2D(in)), nil
	case keras.KindGlobalAveragePooling2D:
		return flattenPooled(relay.GlobalAvgPool2D(in)), nil
	}

	attrs, err := attrsOf[*keras.PoolAttrs](layer)
	if err != nil {
		return nil, err
	}

	padding := []int{0, 0}
	switch attrs.Padding {
	case "valid":
	case "same":
		inH, inW, err := spatialInputSize(layer)
		if err != nil {
			return nil, err
		}
		padT, padB := PadPair(inH, attrs.PoolSize[0], attrs.Strides[0])
		padL, padR := PadPair(inW, attrs.PoolSize[1], attrs.Strides[1])
		padding = []int{padT, padL, padB, padR}
	default:
		return nil, fmt.Errorf("%w: padding type %q", ErrUnsupportedVariant, attrs.Padding)
	}

	switch layer.Kind {
	case keras.KindMaxPooling2D:
		return relay.MaxPool2D(in, attrs.PoolSize, attrs.Strides, padding), nil
	case keras.KindAveragePooling2D:
		// Padded cells never count toward the average.
		return relay.AvgPool2D(in, attrs.PoolSize, attrs.Strides, padding), nil
	default:
		return nil, fmt.Errorf("%w: pooling type %s", ErrUnsupportedVariant, layer.Kind)
	}
}

// flattenPooled collapses the 1x1 spatial result of a global pool into
// (batch, channels), transposing channels back to the trailing axis
// first to match the flatten convention.
func flattenPooled(pooled relay.Expr) relay.Expr {
	return relay.BatchFlatten(relay.Transpose(pooled, []int{0, 2, 3, 1}))
}
