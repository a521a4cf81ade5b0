package platform

import (
	"github.com/aretw0/rulemerge/pkg/adapters/fs"
	"github.com/aretw0/rulemerge/pkg/core"
	"github.com/aretw0/rulemerge/pkg/engine"
	"github.com/aretw0/rulemerge/pkg/manifest"
)

// New loads the manifest at path and wires an engine for it.
//
//	e, err := rulemerge.New("build.yaml", rulemerge.WithConcurrency(4))
//
// A malformed manifest returns a *core.ManifestError and no engine.
func New(path string, opts ...Option) (*engine.Engine, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return FromManifest(m, opts...)
}

// FromManifest wires an engine for an already parsed manifest.
func FromManifest(m core.Manifest, opts ...Option) (*engine.Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	repo := o.repository
	if repo == nil {
		repo = NewRepository(m, opts...)
	}

	classifier := o.classifier
	if classifier == nil {
		classifier = newLookup(m, o.categories)
	}

	return engine.New(engine.Config{
		Manifest:    m,
		Repository:  repo,
		Classifier:  classifier,
		Comments:    o.comments,
		Concurrency: o.concurrency,
		Logger:      o.logger,
	})
}

// NewRepository builds the filesystem adapter for m, rooted at the
// manifest's directory unless WithRoot says otherwise.
func NewRepository(m core.Manifest, opts ...Option) *fs.Repository {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	root := o.root
	if root == "" {
		root = m.Root
	}
	return fs.NewRepository(fs.Config{
		Root:         root,
		FileMode:     o.fileMode,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
}
