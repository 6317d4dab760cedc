package renderer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"KlineStudio/internal/errors"
)

// Format selects the chart spec encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Ext returns the file extension of the format.
func (f Format) Ext() string {
	if f == FormatMsgpack {
		return ".msgpack"
	}
	return ".json"
}

func (f Format) encoder() (func(any) ([]byte, error), error) {
	switch f {
	case FormatJSON, "":
		return func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }, nil
	case FormatMsgpack:
		return msgpack.Marshal, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown chart format %q", f)
	}
}

// Decode reads a chart spec written in format f.
func (f Format) Decode(data []byte) (ChartSpec, error) {
	var c ChartSpec
	var err error
	if f == FormatMsgpack {
		err = msgpack.Unmarshal(data, &c)
	} else {
		err = json.Unmarshal(data, &c)
	}
	return c, err
}

// writeAtomic encodes v and renames it into place so readers never see a partial file.
func writeAtomic(path string, f Format, v any) error {
	encode, err := f.encoder()
	if err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeEncodeFailed, err, "encode %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".chart-*")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOutputUnwritable, err, "create temp for %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(errors.ErrCodeOutputUnwritable, err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(errors.ErrCodeOutputUnwritable, err, "close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(errors.ErrCodeOutputUnwritable, err, "rename into %s", path)
	}
	return nil
}
