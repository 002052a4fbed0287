package clicfg

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"
)

var (
	ErrCannotParseFlags = errors.New("cannot parse flags")

	durationType = reflect.TypeOf(time.Duration(0))
)

// ParseFlags copies the values of c's flags into the struct s points to.
// Fields are matched by their `flag:"name"` tag, untagged and unexported
// fields are left untouched. Embedded structs are walked recursively.
func ParseFlags(c *cli.Command, s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("%w: expected pointer to struct, got %T", ErrCannotParseFlags, s)
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("%w: expected pointer to struct, got pointer to %s", ErrCannotParseFlags, v.Kind())
	}

	return parseStruct(c, v)
}

func parseStruct(c *cli.Command, v reflect.Value) error {
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		value := v.Field(i)

		if !value.CanSet() {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := parseStruct(c, value); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("flag")
		if name == "" {
			continue
		}

		if err := setField(c, name, value); err != nil {
			return fmt.Errorf("%w: field %s: %w", ErrCannotParseFlags, field.Name, err)
		}
	}

	return nil
}

func setField(c *cli.Command, name string, value reflect.Value) error {
	if value.Type() == durationType {
		value.SetInt(int64(c.Duration(name)))
		return nil
	}

	switch value.Kind() {
	case reflect.String:
		value.SetString(c.String(name))
	case reflect.Bool:
		value.SetBool(c.Bool(name))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value.SetInt(int64(c.Int(name)))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value.SetUint(uint64(c.Uint(name)))
	case reflect.Float32, reflect.Float64:
		value.SetFloat(c.Float64(name))
	default:
		if raw := c.String(name); raw != "" {
			return setFromString(value, raw)
		}
	}

	return nil
}

// setFromString converts raw into the kind of value. Used for flags whose
// Go type has no dedicated accessor on cli.Command.
func setFromString(value reflect.Value, raw string) error {
	switch value.Kind() {
	case reflect.String:
		value.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		value.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		value.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		value.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		value.SetFloat(f)
	default:
		return fmt.Errorf("unsupported type: %s", value.Kind())
	}
	return nil
}
