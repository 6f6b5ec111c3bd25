package frontend

import "errors"

// Conversion failures. All are terminal: any error aborts the whole
// conversion and no partial result is ever returned.
var (
	// ErrUnsupportedLayer marks a layer kind outside the supported set.
	ErrUnsupportedLayer = errors.New("unsupported layer kind")

	// ErrUnsupportedVariant marks a recognized layer used with an
	// unimplemented configuration (1D padding/cropping, unequal
	// upsampling factors, unknown activations or padding modes).
	ErrUnsupportedVariant = errors.New("unsupported operation variant")

	// ErrShapeConstraint marks an input whose shape the rule cannot
	// lower (wrong rank, mismatched reshape channels, bad arity).
	ErrShapeConstraint = errors.New("shape constraint violation")

	// ErrUnknownSymbol and ErrDuplicateSymbol indicate a traversal
	// order bug or a malformed model graph.
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrDuplicateSymbol = errors.New("duplicate symbol")

	// ErrMissingAttribute marks a layer lacking a required attribute
	// or learned array (e.g. PReLU without its alpha weights).
	ErrMissingAttribute = errors.New("missing required attribute")
)
