package rendering

import "context"

// DefaultModules assembles the fpdf-backed engine with AutoTable attached.
type DefaultModules struct{}

func (DefaultModules) LoadCore(context.Context) (*Engine, error) {
	return NewEngine(), nil
}

func (m DefaultModules) LoadTableExtension(_ context.Context, engine *Engine) error {
	return m.AttachTableExtension(engine)
}

func (DefaultModules) AttachTableExtension(engine *Engine) error {
	return engine.Attach(TableExtension, AutoTable{})
}
