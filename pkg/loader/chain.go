package loader

import (
	"errors"
	"time"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

// Chain asks each loader in turn. The first loader that does not report
// tmpl.ErrTemplateNotFound answers, including with an error.
type Chain []tmpl.Loader

func (c Chain) Source(name string) (string, error) {
	for _, l := range c {
		src, err := l.Source(name)
		if errors.Is(err, tmpl.ErrTemplateNotFound) {
			continue
		}
		return src, err
	}
	return "", tmpl.NotFoundError{Name: name}
}

func (c Chain) LastModified(name string) (time.Time, error) {
	for _, l := range c {
		t, err := l.LastModified(name)
		if errors.Is(err, tmpl.ErrTemplateNotFound) {
			continue
		}
		return t, err
	}
	return time.Time{}, tmpl.NotFoundError{Name: name}
}
