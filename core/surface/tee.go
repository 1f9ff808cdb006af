package surface

import (
	"errors"

	"github.com/startterm/startsh/core/screen"
)

type tee []screen.Surface

// Tee renders every frame on each of the surfaces.
func Tee(surfaces ...screen.Surface) screen.Surface {
	return tee(surfaces)
}

func (t tee) SetGrid(rows, cols int) {
	for _, s := range t {
		s.SetGrid(rows, cols)
	}
}

func (t tee) Render(rows []screen.Line) error {
	var errs []error
	for _, s := range t {
		if err := s.Render(rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
