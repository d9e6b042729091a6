package primerblast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// jobFields is Job without its methods, so encoding/json handles the
// declared fields.
type jobFields Job

// jobKeys holds every JSON key Job declares.
var jobKeys = func() map[string]struct{} {
	keys := make(map[string]struct{})
	t := reflect.TypeOf(jobFields{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}()

// Extra returns the raw value of a key the record carried that Job does not
// declare.
func (j Job) Extra(key string) (json.RawMessage, bool) {
	v, ok := j.extra[key]
	return v, ok
}

// UnmarshalJSON decodes the declared fields and keeps every other key so the
// record is written back whole.
func (j *Job) UnmarshalJSON(data []byte) error {
	var fields jobFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if _, known := jobKeys[k]; known {
			delete(all, k)
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, v); err != nil {
			return err
		}
		all[k] = compact.Bytes()
	}
	if len(all) == 0 {
		all = nil
	}
	*j = Job(fields)
	j.extra = all
	return nil
}

// MarshalJSON writes the declared fields in order, then the kept keys sorted
// by name.
func (j Job) MarshalJSON() ([]byte, error) {
	base, err := encodeNoEscape(jobFields(j))
	if err != nil {
		return nil, err
	}
	if len(j.extra) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(j.extra))
	for k := range j.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(bytes.TrimSuffix(base, []byte("}")))
	for i, k := range keys {
		if i > 0 || len(base) > 2 {
			buf.WriteByte(',')
		}
		name, err := encodeNoEscape(k)
		if err != nil {
			return nil, err
		}
		if !json.Valid(j.extra[k]) {
			return nil, fmt.Errorf("field %q holds invalid json", k)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(j.extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
