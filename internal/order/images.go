package order

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// DecodeImages parses a JSON array of strings. JSON null decodes to nil and
// "[]" to an empty, non-nil slice.
func DecodeImages(raw []byte) ([]string, error) {
	d := jx.DecodeBytes(raw)

	if d.Next() == jx.Null {
		if err := d.Null(); err != nil {
			return nil, err
		}
		return nil, expectEOF(d)
	}

	images := []string{}
	if err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		images = append(images, s)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "image array")
	}

	if err := expectEOF(d); err != nil {
		return nil, err
	}
	return images, nil
}

// expectEOF fails unless only whitespace remains in d.
func expectEOF(d *jx.Decoder) error {
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return errors.New("image array: unexpected trailing data")
	}
	return nil
}

// EncodeImages is the inverse of DecodeImages. A nil slice encodes as "[]".
func EncodeImages(images []string) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, s := range images {
		e.Str(s)
	}
	e.ArrEnd()
	return e.Bytes()
}
