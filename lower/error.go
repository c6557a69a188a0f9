package lower

import "github.com/pkg/errors"

// Errorf reports a codegen error through the generator's error handler,
// marks the generator as failed, and returns the error so call sites can
// short-circuit with `return zeroVal, gen.Errorf(...)`-style returns.
func (gen *Generator) Errorf(format string, a ...interface{}) error {
	err := errors.Errorf(format, a...)
	gen.failed = true
	gen.eh(err)
	return err
}

// wrap attaches a stack trace to an internal error crossing a function
// boundary, mirroring the teacher's use of errors.WithStack.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}
