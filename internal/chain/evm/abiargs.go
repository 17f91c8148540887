package evm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	errArgAddress = errors.New("expected a hex address")
	errArgInteger = errors.New("expected an integer")
	errArgBytes   = errors.New("expected 0x-prefixed hex bytes")
	errArgLength  = errors.New("wrong number of elements")
	errArgType    = errors.New("unsupported argument type")
)

// convertArg turns a JSON argument into the Go value go-ethereum packs for t.
// Integers may be JSON numbers, decimal strings or 0x hex strings.
func convertArg(t abi.Type, raw json.RawMessage) (any, error) {
	v, err := convertValue(t, raw)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

//nolint:gocyclo // one case per ABI kind
func convertValue(t abi.Type, raw json.RawMessage) (reflect.Value, error) {
	switch t.T {
	case abi.AddressTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || !common.IsHexAddress(s) {
			return reflect.Value{}, errArgAddress
		}
		return reflect.ValueOf(common.HexToAddress(s)), nil

	case abi.IntTy, abi.UintTy:
		n, err := parseInteger(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return integerValue(t, n)

	case abi.BoolTy:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return reflect.Value{}, fmt.Errorf("expected a bool: %w", err)
		}
		return reflect.ValueOf(b), nil

	case abi.StringTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return reflect.Value{}, fmt.Errorf("expected a string: %w", err)
		}
		return reflect.ValueOf(s), nil

	case abi.BytesTy:
		b, err := parseBytes(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil

	case abi.FixedBytesTy:
		b, err := parseBytes(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(b) > t.Size {
			return reflect.Value{}, errArgLength
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr, nil

	case abi.SliceTy, abi.ArrayTy:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return reflect.Value{}, fmt.Errorf("expected an array: %w", err)
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return reflect.Value{}, errArgLength
		}
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(t.GetType(), len(items), len(items))
		} else {
			out = reflect.New(t.GetType()).Elem()
		}
		for i, item := range items {
			ev, err := convertValue(*t.Elem, item)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case abi.TupleTy:
		return tupleValue(t, raw)

	default:
		return reflect.Value{}, errArgType
	}
}

// tupleValue fills the struct go-ethereum generates for a tuple, from either
// a positional array or an object keyed by component name.
func tupleValue(t abi.Type, raw json.RawMessage) (reflect.Value, error) {
	fields := make([]json.RawMessage, len(t.TupleElems))

	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err == nil {
		if len(positional) != len(fields) {
			return reflect.Value{}, errArgLength
		}
		copy(fields, positional)
	} else {
		var named map[string]json.RawMessage
		if err := json.Unmarshal(raw, &named); err != nil {
			return reflect.Value{}, fmt.Errorf("expected an array or object: %w", err)
		}
		for i, name := range t.TupleRawNames {
			v, ok := named[name]
			if !ok {
				return reflect.Value{}, fmt.Errorf("missing tuple field %q", name) //nolint:err113 // wrapped into ErrInvalidABI by PackCall
			}
			fields[i] = v
		}
	}

	out := reflect.New(t.GetType()).Elem()
	for i, elem := range t.TupleElems {
		fv, err := convertValue(*elem, fields[i])
		if err != nil {
			return reflect.Value{}, fmt.Errorf("tuple field %d: %w", i, err)
		}
		out.Field(i).Set(fv)
	}
	return out, nil
}

func parseInteger(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return nil, errArgInteger
		}
		s = num.String()
	}
	s = strings.TrimSpace(s)

	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = n.SetString(s[2:], 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok {
		return nil, errArgInteger
	}
	return n, nil
}

// integerValue converts n to the Go kind go-ethereum expects for t: the
// sized int and uint kinds up to 64 bits, *big.Int beyond.
func integerValue(t abi.Type, n *big.Int) (reflect.Value, error) {
	goType := t.GetType()
	if goType == reflect.TypeOf(&big.Int{}) {
		if t.T == abi.UintTy && n.Sign() < 0 {
			return reflect.Value{}, errArgInteger
		}
		return reflect.ValueOf(n), nil
	}

	v := reflect.New(goType).Elem()
	switch goType.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !n.IsUint64() || v.OverflowUint(n.Uint64()) {
			return reflect.Value{}, errArgInteger
		}
		v.SetUint(n.Uint64())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !n.IsInt64() || v.OverflowInt(n.Int64()) {
			return reflect.Value{}, errArgInteger
		}
		v.SetInt(n.Int64())
	default:
		return reflect.Value{}, errArgType
	}
	return v, nil
}

func parseBytes(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errArgBytes
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		if s == "0x" {
			return []byte{}, nil
		}
		return nil, errArgBytes
	}
	return b, nil
}
