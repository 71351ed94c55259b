// Package record 病历嵌套路径修改
//
// 路径由 json 字段名以 "." 连接，数字段表示列表下标，例如
// "examination.customOrgans.0.techniques.1.content"。所有修改都在副本上进行。
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"medig/internal/derive"
	"medig/internal/domain"
)

var (
	ErrInvalidPath  = errors.New("invalid field path")
	ErrInvalidValue = errors.New("invalid field value")
)

type validator interface {
	Valid() bool
}

// derivation 派生规则：写入 triggers 中任一路径（或其祖先）后执行 apply
type derivation struct {
	triggers []string
	outputs  []string
	apply    func(domain.Record)
}

var derivations = []derivation{
	{
		triggers: []string{"examination.vitals.weight", "examination.vitals.height"},
		outputs:  []string{"examination.vitals.bmi", "examination.vitals.classification"},
		apply: func(r domain.Record) {
			switch rec := r.(type) {
			case *domain.PatientRecord:
				derive.ApplyBMI(&rec.Examination.Vitals)
			case *domain.PostOpRecord:
				derive.ApplyBMI(&rec.Examination.Vitals)
			}
		},
	},
}

// Update 返回在 path 处写入 value 后的新记录，rec 本身不变
//
// 下标等于列表长度时追加一个零值元素。value 类型可直接赋值时直接赋值，
// 否则按 JSON 解码（json.RawMessage 直接解码）。
func Update(rec domain.Record, path string, value any) (domain.Record, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if isDerivedOutput(path) {
		return nil, fmt.Errorf("%w: %s is computed", ErrInvalidPath, path)
	}
	out := rec.CloneRecord()
	target, err := resolve(reflect.ValueOf(out), segs, path)
	if err != nil {
		return nil, err
	}
	if err := assign(target, value); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	applyDerivations(out, path)
	return out, nil
}

// AppendItem 在列表末尾追加新元素；带 id 的元素生成新 id，表格行按表头宽度生成，
// 空表格则写入默认化验表格，返回值为最后一行下标
func AppendItem(rec domain.Record, listPath string) (domain.Record, int, error) {
	segs, err := splitPath(listPath)
	if err != nil {
		return nil, 0, err
	}
	out := rec.CloneRecord()
	list, err := resolve(reflect.ValueOf(out), segs, listPath)
	if err != nil {
		return nil, 0, err
	}
	if list.Kind() != reflect.Slice {
		return nil, 0, fmt.Errorf("%w: %s is not a list", ErrInvalidPath, listPath)
	}
	if list.Len() == 0 && list.Type() == labTableType {
		list.Set(reflect.ValueOf(domain.DefaultLabTable()))
		return out, list.Len() - 1, nil
	}
	elem := newElem(list)
	list.Set(reflect.Append(list, elem))
	return out, list.Len() - 1, nil
}

// 空表格追加时以默认化验表格（表头 + 空行）起始
var labTableType = reflect.TypeOf([][]string(nil))

// RemoveItem 删除列表中下标为 index 的元素
func RemoveItem(rec domain.Record, listPath string, index int) (domain.Record, error) {
	segs, err := splitPath(listPath)
	if err != nil {
		return nil, err
	}
	out := rec.CloneRecord()
	list, err := resolve(reflect.ValueOf(out), segs, listPath)
	if err != nil {
		return nil, err
	}
	if list.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: %s is not a list", ErrInvalidPath, listPath)
	}
	if index < 0 || index >= list.Len() {
		return nil, fmt.Errorf("%w: %s index %d out of range", ErrInvalidPath, listPath, index)
	}
	next := reflect.MakeSlice(list.Type(), 0, list.Len()-1)
	next = reflect.AppendSlice(next, list.Slice(0, index))
	next = reflect.AppendSlice(next, list.Slice(index+1, list.Len()))
	list.Set(next)
	applyDerivations(out, listPath)
	return out, nil
}

func splitPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

func resolve(v reflect.Value, segs []string, path string) (reflect.Value, error) {
	for i := 0; i < len(segs); {
		seg := segs[i]
		switch v.Kind() {
		case reflect.Ptr:
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
			continue
		case reflect.Struct:
			idx, ok := fieldIndex(v.Type(), seg)
			if !ok {
				return reflect.Value{}, fmt.Errorf("%w: unknown field %q in %s", ErrInvalidPath, seg, path)
			}
			v = v.Field(idx)
		case reflect.Slice:
			n, err := strconv.Atoi(seg)
			if err != nil || n < 0 {
				return reflect.Value{}, fmt.Errorf("%w: %q is not a list index in %s", ErrInvalidPath, seg, path)
			}
			if n > v.Len() {
				return reflect.Value{}, fmt.Errorf("%w: index %d out of range in %s", ErrInvalidPath, n, path)
			}
			if n == v.Len() {
				v.Set(reflect.Append(v, reflect.Zero(v.Type().Elem())))
			}
			v = v.Index(n)
		default:
			return reflect.Value{}, fmt.Errorf("%w: cannot descend into %q in %s", ErrInvalidPath, seg, path)
		}
		i++
	}
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	return v, nil
}

func fieldIndex(t reflect.Type, name string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if tag == name {
			return i, true
		}
	}
	return 0, false
}

func assign(target reflect.Value, value any) error {
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	next := reflect.New(target.Type()).Elem()
	rv := reflect.ValueOf(value)
	raw, isRaw := value.(json.RawMessage)
	switch {
	case isRaw:
		if err := json.Unmarshal(raw, next.Addr().Interface()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	case rv.Type().AssignableTo(target.Type()):
		next.Set(rv)
	case rv.Kind() == target.Kind() && rv.Type().ConvertibleTo(target.Type()):
		next.Set(rv.Convert(target.Type()))
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if err := json.Unmarshal(b, next.Addr().Interface()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}
	if err := validate(next); err != nil {
		return err
	}
	target.Set(next)
	return nil
}

// validate 递归检查枚举字段
func validate(v reflect.Value) error {
	if v.CanInterface() {
		if val, ok := v.Interface().(validator); ok && !val.Valid() {
			return fmt.Errorf("%w: %v is not allowed", ErrInvalidValue, v.Interface())
		}
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err := validate(v.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err := validate(v.Index(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func newElem(list reflect.Value) reflect.Value {
	et := list.Type().Elem()
	elem := reflect.New(et).Elem()
	switch et.Kind() {
	case reflect.Struct:
		if f := elem.FieldByName("ID"); f.IsValid() && f.Kind() == reflect.String {
			f.SetString(uuid.NewString())
		}
		if f := elem.FieldByName("Enabled"); f.IsValid() && f.Kind() == reflect.Bool {
			f.SetBool(true)
		}
	case reflect.Slice:
		if et.Elem().Kind() == reflect.String {
			width := 4
			if list.Len() > 0 {
				width = list.Index(0).Len()
			}
			elem = reflect.MakeSlice(et, width, width)
		}
	}
	return elem
}

func applyDerivations(rec domain.Record, path string) {
	for _, d := range derivations {
		for _, trig := range d.triggers {
			if path == trig || strings.HasPrefix(trig, path+".") {
				d.apply(rec)
				break
			}
		}
	}
}

func isDerivedOutput(path string) bool {
	for _, d := range derivations {
		for _, o := range d.outputs {
			if path == o {
				return true
			}
		}
	}
	return false
}
