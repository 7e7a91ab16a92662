package file

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/blocknative/walletprovider/cmd/walletprovider/config"
	"github.com/blocknative/walletprovider/structs"
)

var ErrParse = errors.New("parse failure")

// Source reads an ini file. Sections and keys are matched against the
// `config` tags of config.Config.
type Source struct {
	filepath string
}

func NewSource(filepath string) *Source {
	return &Source{filepath: filepath}
}

type propagator interface {
	Propagate(structs.OldNew) error
}

// update is a parsed value that has not been applied yet.
type update struct {
	section string
	key     string
	name    string
	owner   reflect.Value
	field   reflect.Value
	value   reflect.Value
}

// Load parses the whole file before touching c, so a broken file leaves the
// running configuration untouched.
func (s *Source) Load(c *config.Config, initial bool) error {
	fh, err := os.Open(s.filepath)
	if err != nil {
		return err
	}
	defer fh.Close()

	// only ini supported
	updates, err := parseIni(fh, c)
	if err != nil {
		return err
	}
	return apply(updates, initial)
}

func apply(updates []update, initial bool) error {
	var errs []error
	for _, u := range updates {
		old := u.field.Interface()
		if !initial && reflect.DeepEqual(old, u.value.Interface()) {
			continue
		}
		u.field.Set(u.value)
		if initial {
			continue
		}

		p, ok := u.owner.Addr().Interface().(propagator)
		if !ok {
			continue
		}
		err := p.Propagate(structs.OldNew{
			ParamPath: []string{u.section, u.key},
			Name:      u.name,
			Old:       old,
			New:       u.value.Interface(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", u.section, u.key, err))
		}
	}
	return errors.Join(errs...)
}

func parseIni(r io.Reader, c *config.Config) ([]update, error) {
	var (
		cfg         = reflect.ValueOf(c).Elem()
		current     reflect.Value
		currentName string
		updates     []update
		lineNo      int
	)

	s := bufio.NewScanner(r)
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if len(line) < 1 {
			continue
		}

		switch line[0] {
		case '#', '/', ';':
			// comments
		case '[':
			tag, _, ok := strings.Cut(line[1:], "]")
			if !ok {
				return nil, fmt.Errorf("line %d: %w: unterminated section", lineNo, ErrParse)
			}
			sec, found := byTag(cfg, strings.TrimSpace(tag))
			if !found {
				return nil, fmt.Errorf("line %d: %w: unknown section %q", lineNo, ErrParse, tag)
			}
			if sec.Kind() == reflect.Pointer {
				if sec.IsNil() {
					return nil, fmt.Errorf("line %d: %w: section %q not initialized", lineNo, ErrParse, tag)
				}
				sec = sec.Elem()
			}
			current, currentName = sec, strings.TrimSpace(tag)

		default:
			if !current.IsValid() {
				return nil, fmt.Errorf("line %d: %w: key outside of a section", lineNo, ErrParse)
			}
			key, value, found := strings.Cut(line, "=")
			if !found {
				return nil, fmt.Errorf("line %d: %w: expected key = value", lineNo, ErrParse)
			}
			key = strings.TrimSpace(key)

			field, ok := byTag(current, key)
			if !ok {
				return nil, fmt.Errorf("line %d: %w: unknown key %s.%s", lineNo, ErrParse, currentName, key)
			}
			v, err := parseParam(field.Type(), strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("line %d: %s.%s: %w", lineNo, currentName, key, err)
			}

			updates = append(updates, update{
				section: currentName,
				key:     key,
				name:    fieldName(current, key),
				owner:   current,
				field:   field,
				value:   v,
			})
		}
	}

	if err := s.Err(); err != nil {
		return nil, err
	}
	return updates, nil
}

func byTag(v reflect.Value, tag string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if name, ok := t.Field(i).Tag.Lookup("config"); ok && name == tag {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func fieldName(v reflect.Value, tag string) string {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if name, ok := t.Field(i).Tag.Lookup("config"); ok && name == tag {
			return t.Field(i).Name
		}
	}
	return ""
}

var durationType = reflect.TypeOf(time.Duration(0))

func parseParam(t reflect.Type, value string) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(d), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(u).Convert(t), nil
	case reflect.String:
		return reflect.ValueOf(unquote(value)).Convert(t), nil
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			break
		}
		items := splitList(value)
		if len(items) == 0 {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(items).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported type %s", t)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = unquote(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}
