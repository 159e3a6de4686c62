package ddsauth

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/brendoncarroll/go-ddsauth/f/cdr"
)

// Property is a named string carried by a token.
type Property struct {
	Name      string
	Value     string
	Propagate bool
}

// BinaryProperty is a named byte string carried by a token.
// Only propagated properties are serialized.
type BinaryProperty struct {
	Name      string
	Value     []byte
	Propagate bool
}

func NewBinaryProperty(name string, value []byte) BinaryProperty {
	return BinaryProperty{Name: name, Value: value, Propagate: true}
}

// DataHolder is a token exchanged between participants.
// The order of properties is significant, it determines the serialized form which is hashed and signed.
type DataHolder struct {
	ClassID          string
	Properties       []Property
	BinaryProperties []BinaryProperty
}

func (dh *DataHolder) AddProperty(name, value string) {
	dh.Properties = append(dh.Properties, Property{Name: name, Value: value, Propagate: true})
}

func (dh *DataHolder) AddBinary(name string, value []byte) {
	dh.BinaryProperties = append(dh.BinaryProperties, NewBinaryProperty(name, value))
}

// Property returns the value of the first string property called name.
func (dh *DataHolder) Property(name string) (string, error) {
	i := slices.IndexFunc(dh.Properties, func(p Property) bool { return p.Name == name })
	if i < 0 {
		return "", ErrMissingProperty{Name: name}
	}
	return dh.Properties[i].Value, nil
}

// Binary returns the value of the first binary property called name.
func (dh *DataHolder) Binary(name string) ([]byte, error) {
	i := slices.IndexFunc(dh.BinaryProperties, func(p BinaryProperty) bool { return p.Name == name })
	if i < 0 {
		return nil, ErrMissingProperty{Name: name}
	}
	return dh.BinaryProperties[i].Value, nil
}

// Clone returns a deep copy of dh.
func (dh DataHolder) Clone() DataHolder {
	ret := DataHolder{
		ClassID:    dh.ClassID,
		Properties: slices.Clone(dh.Properties),
	}
	for _, p := range dh.BinaryProperties {
		p.Value = slices.Clone(p.Value)
		ret.BinaryProperties = append(ret.BinaryProperties, p)
	}
	return ret
}

// MarshalCDR appends the wire encoding of dh to out.
func (dh DataHolder) MarshalCDR(out []byte) []byte {
	w := cdr.NewWriter(out)
	w.WriteString(dh.ClassID)
	var n uint32
	for _, p := range dh.Properties {
		if p.Propagate {
			n++
		}
	}
	w.WriteUint32(n)
	for _, p := range dh.Properties {
		if !p.Propagate {
			continue
		}
		w.WriteString(p.Name)
		w.WriteString(p.Value)
	}
	writeBinaryProperties(w, dh.BinaryProperties)
	return w.Bytes()
}

// ParseDataHolder parses the output of MarshalCDR.
// All properties in the result are marked for propagation.
func ParseDataHolder(data []byte) (DataHolder, error) {
	r := cdr.NewReader(data)
	var dh DataHolder
	var err error
	if dh.ClassID, err = r.ReadString(); err != nil {
		return DataHolder{}, err
	}
	n, err := r.ReadUint32()
	if err != nil {
		return DataHolder{}, err
	}
	for i := uint32(0); i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return DataHolder{}, err
		}
		value, err := r.ReadString()
		if err != nil {
			return DataHolder{}, err
		}
		dh.AddProperty(name, value)
	}
	if n, err = r.ReadUint32(); err != nil {
		return DataHolder{}, err
	}
	for i := uint32(0); i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return DataHolder{}, err
		}
		value, err := r.ReadOctets()
		if err != nil {
			return DataHolder{}, err
		}
		dh.AddBinary(name, slices.Clone(value))
	}
	if r.Remaining() > 0 {
		return DataHolder{}, errors.Wrapf(ErrMalformedEncoding, "%d bytes after token", r.Remaining())
	}
	return dh, nil
}

// AppendBinaryProperties appends the encoding of a sequence of binary properties to out.
// If limit is not empty the sequence ends before the first property called limit.
func AppendBinaryProperties(out []byte, props []BinaryProperty, limit string) []byte {
	if limit != "" {
		if i := slices.IndexFunc(props, func(p BinaryProperty) bool { return p.Name == limit }); i >= 0 {
			props = props[:i]
		}
	}
	w := cdr.NewWriter(out)
	writeBinaryProperties(w, props)
	return w.Bytes()
}

func writeBinaryProperties(w *cdr.Writer, props []BinaryProperty) {
	var n uint32
	for _, p := range props {
		if p.Propagate {
			n++
		}
	}
	w.WriteUint32(n)
	for _, p := range props {
		if !p.Propagate {
			continue
		}
		w.WriteString(p.Name)
		w.WriteOctets(p.Value)
	}
}
