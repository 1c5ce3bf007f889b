package store

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"

	errUtils "github.com/WaywardWizard/cuenim/errors"
)

// Typed accessors built on Get. Numeric accessors accept JSON strings and
// parse them, accommodating sources that keep very large numbers as
// strings to avoid precision loss. Conversion failures surface as
// ErrTypeMismatch.

// GetString resolves key as a string.
func (s *Store) GetString(key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	out, err := cast.ToStringE(v)
	if err != nil {
		return "", typeMismatch(key, v, err)
	}
	return out, nil
}

// GetInt resolves key as an int64.
func (s *Store) GetInt(key string) (int64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	out, err := cast.ToInt64E(v)
	if err != nil {
		return 0, typeMismatch(key, v, err)
	}
	return out, nil
}

// GetFloat resolves key as a float64.
func (s *Store) GetFloat(key string) (float64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	out, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, typeMismatch(key, v, err)
	}
	return out, nil
}

// GetBool resolves key as a bool.
func (s *Store) GetBool(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	out, err := cast.ToBoolE(v)
	if err != nil {
		return false, typeMismatch(key, v, err)
	}
	return out, nil
}

// GetStringSlice resolves key as a []string.
func (s *Store) GetStringSlice(key string) ([]string, error) {
	v, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	out, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, typeMismatch(key, v, err)
	}
	return out, nil
}

// Decode resolves key (normally an object-valued path) into out, a pointer
// to a struct tagged with mapstructure tags.
func (s *Store) Decode(key string, out any) error {
	v, err := s.Get(key)
	if err != nil {
		return err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errUtils.Wrap(err, "building decoder")
	}
	if err := decoder.Decode(v); err != nil {
		return typeMismatch(key, v, err)
	}
	return nil
}

// As resolves key into a value of type T, going through Decode for
// composite types and cast-style conversion for scalars.
func As[T any](s *Store, key string) (T, error) {
	var out T
	v, err := s.Get(key)
	if err != nil {
		return out, err
	}
	if direct, ok := v.(T); ok {
		return direct, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, errUtils.Wrap(err, "building decoder")
	}
	if err := decoder.Decode(v); err != nil {
		return out, typeMismatch(key, v, err)
	}
	return out, nil
}

func typeMismatch(key string, v any, cause error) error {
	return errUtils.Mark(
		errUtils.Wrapf(cause, "key %q (value %T)", key, v),
		errUtils.ErrTypeMismatch)
}
