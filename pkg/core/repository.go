package core

import "context"

// Store is the read side of the content store holding source documents.
// Paths are relative to the store root unless absolute.
type Store interface {
	// Read returns the current contents of the document at path.
	// A missing document yields an error wrapping ErrNotFound.
	Read(ctx context.Context, path string) (Document, error)

	// Glob expands a doublestar pattern into matching file paths in lexical order.
	Glob(ctx context.Context, pattern string) ([]string, error)
}

// Sink receives generated outputs.
type Sink interface {
	// Write replaces the file at path with data. Readers must never observe
	// a partially written file.
	Write(ctx context.Context, path string, data []byte) error
}

// Repository combines the store and the sink, which is what the default
// filesystem adapter provides.
type Repository interface {
	Store
	Sink
}

// Classifier maps an include file path to a category.
// It returns false when the path matches no known identifier.
type Classifier interface {
	Classify(path string) (Category, bool)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(path string) (Category, bool)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(path string) (Category, bool) {
	return f(path)
}
