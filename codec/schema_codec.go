package codec

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"unicode/utf8"

	"github.com/luphord/remcall/schema"
)

// SchemaWriter serializes a *schema.Schema to a byte stream in the exact
// layout SchemaReader expects, accumulating a SHA-256 digest over every
// byte written (the magic and schema body, but not the digest itself) and
// appending that digest as the frame's final 32 bytes.
type SchemaWriter struct {
	*Writer
	hash hash.Hash
	raw  io.Writer
	s    *schema.Schema
}

// NewSchemaWriter prepares to serialize s to out.
func NewSchemaWriter(out io.Writer, s *schema.Schema) *SchemaWriter {
	h := sha256.New()
	return &SchemaWriter{
		Writer: NewWriter(io.MultiWriter(out, h)),
		hash:   h,
		raw:    out,
		s:      s,
	}
}

// WriteSchema writes the full schema frame and returns the digest it
// computed (also available afterwards as s.SHA256Digest would be, had the
// schema carried one).
func (w *SchemaWriter) WriteSchema() ([]byte, error) {
	if err := w.writeRaw0(MAGIC); err != nil {
		return nil, err
	}
	if err := w.writeRaw0(SchemaTag); err != nil {
		return nil, err
	}
	if err := w.WriteString(w.s.Label); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(w.s.BytesMethodRef)); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(w.s.BytesObjectRef)); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(len(w.s.Enums()))); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(len(w.s.Records()))); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(len(w.s.Interfaces()))); err != nil {
		return nil, err
	}

	for _, e := range w.s.Enums() {
		if err := w.writeEnum(e); err != nil {
			return nil, err
		}
	}
	for _, r := range w.s.Records() {
		if err := w.writeRecord(r); err != nil {
			return nil, err
		}
	}
	for _, ifc := range w.s.Interfaces() {
		if err := w.writeInterface(ifc); err != nil {
			return nil, err
		}
	}

	digest := w.hash.Sum(nil)
	if w.s.SHA256Digest != nil && !bytes.Equal(digest, w.s.SHA256Digest) {
		return nil, fmt.Errorf("codec: sha256 sum of schema does not match: computed %x while writing, schema carries %x", digest, w.s.SHA256Digest)
	}
	if _, err := w.raw.Write(digest); err != nil {
		return nil, err
	}
	return digest, nil
}

// writeRaw0 bypasses exported Write* methods to write already-framed
// constant byte strings (MAGIC, SchemaTag, block tags) through the hashing
// writer.
func (w *SchemaWriter) writeRaw0(b []byte) error {
	_, err := w.Writer.out.Write(b)
	w.Writer.offset += int64(len(b))
	return err
}

func (w *SchemaWriter) typeRef(t schema.Type) (int32, error) {
	idx, ok := w.s.TypeIndex(t)
	if !ok {
		return 0, fmt.Errorf("codec: trying to write type reference to unknown type %v", t)
	}
	return idx, nil
}

func (w *SchemaWriter) writeTypeRef(t schema.Type) error {
	idx, err := w.typeRef(t)
	if err != nil {
		return err
	}
	return w.WriteTypeRef(idx)
}

func (w *SchemaWriter) writeEnum(e *schema.Enum) error {
	if err := w.writeRaw0([]byte{DeclareEnum}); err != nil {
		return err
	}
	if err := w.writeTypeRef(e); err != nil {
		return err
	}
	if err := w.WriteName(e.TypeName()); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(e.Values))); err != nil {
		return err
	}
	for _, v := range e.Values {
		if err := w.WriteName(v); err != nil {
			return err
		}
	}
	return nil
}

func (w *SchemaWriter) writeRecord(r *schema.Record) error {
	if err := w.writeRaw0([]byte{DeclareRecord}); err != nil {
		return err
	}
	if err := w.writeTypeRef(r); err != nil {
		return err
	}
	if err := w.WriteName(r.TypeName()); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(r.Fields))); err != nil {
		return err
	}
	for _, f := range r.Fields {
		if err := w.writeTypeRef(f.Type); err != nil {
			return err
		}
		if err := w.WriteName(f.Name); err != nil {
			return err
		}
	}
	return nil
}

func (w *SchemaWriter) writeMethod(m *schema.Method, ordinal int) error {
	if err := w.WriteUnsignedInteger(uint64(ordinal), w.s.BytesMethodRef); err != nil {
		return err
	}
	if err := w.WriteName(m.Name); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(m.Arguments))); err != nil {
		return err
	}
	for _, a := range m.Arguments {
		if err := w.writeTypeRef(a.Type); err != nil {
			return err
		}
		if err := w.WriteName(a.Name); err != nil {
			return err
		}
	}
	return w.writeTypeRef(m.ReturnType)
}

func (w *SchemaWriter) writeInterface(ifc *schema.Interface) error {
	if err := w.writeRaw0([]byte{DeclareInterface}); err != nil {
		return err
	}
	if err := w.writeTypeRef(ifc); err != nil {
		return err
	}
	if err := w.WriteName(ifc.TypeName()); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(ifc.Methods))); err != nil {
		return err
	}
	for _, m := range ifc.MethodsSorted() {
		ordinal, ok := w.s.MethodOrdinal(m)
		if !ok {
			return fmt.Errorf("codec: method %q has no assigned ordinal", m.Name)
		}
		if err := w.writeMethod(m, ordinal); err != nil {
			return err
		}
	}
	return nil
}

// WriteSchema serializes s to out, returning its content digest.
func WriteSchema(out io.Writer, s *schema.Schema) ([]byte, error) {
	return NewSchemaWriter(out, s).WriteSchema()
}

// SchemaBytes serializes s to a standalone byte slice.
func SchemaBytes(s *schema.Schema) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := WriteSchema(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SchemaReader deserializes a *schema.Schema from a byte stream written by
// SchemaWriter.
type SchemaReader struct {
	*Reader
	hash hash.Hash
	raw  io.Reader

	bytesMethodRef int
	bytesObjectRef int
}

// NewSchemaReader prepares to read a schema frame from in.
func NewSchemaReader(in io.Reader) *SchemaReader {
	h := sha256.New()
	return &SchemaReader{
		Reader: NewReader(io.TeeReader(in, h)),
		hash:   h,
		raw:    in,
	}
}

type pendingRecord struct {
	rec    *schema.Record
	fields []pendingField
}

type pendingField struct {
	typeRef int32
	name    string
}

type pendingMethod struct {
	argTypeRefs []int32
	argNames    []string
	name        string
	retTypeRef  int32
}

type pendingInterface struct {
	ifc     *schema.Interface
	methods []pendingMethod
}

// ReadSchema reads and validates a full schema frame, verifying its
// trailing SHA-256 digest against the content actually read.
func (r *SchemaReader) ReadSchema() (*schema.Schema, error) {
	if err := r.ReadConstant(MAGIC); err != nil {
		return nil, err
	}
	if err := r.ReadConstant(SchemaTag); err != nil {
		return nil, err
	}
	label, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	if !utf8.ValidString(label) {
		return nil, fmt.Errorf("codec: schema label is not valid UTF-8")
	}
	bytesMethodRef, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	bytesObjectRef, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	r.bytesMethodRef = int(bytesMethodRef)
	r.bytesObjectRef = int(bytesObjectRef)

	enumsCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	recordsCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	interfacesCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	types := map[int32]schema.Type{}
	for i, p := range schema.Primitives {
		types[int32(i)] = p
	}

	declared := []schema.Type{}

	for i := uint32(0); i < enumsCount; i++ {
		typeRef, e, err := r.readEnum()
		if err != nil {
			return nil, err
		}
		if _, dup := types[typeRef]; dup {
			return nil, fmt.Errorf("codec: enum type %d declared twice before offset 0x%x", typeRef, r.Offset())
		}
		types[typeRef] = e
		declared = append(declared, e)
	}

	var pendingRecords []pendingRecord
	for i := uint32(0); i < recordsCount; i++ {
		typeRef, pr, err := r.readRecordShell()
		if err != nil {
			return nil, err
		}
		if _, dup := types[typeRef]; dup {
			return nil, fmt.Errorf("codec: record type %d declared twice before offset 0x%x", typeRef, r.Offset())
		}
		types[typeRef] = pr.rec
		declared = append(declared, pr.rec)
		pendingRecords = append(pendingRecords, pr)
	}

	var pendingInterfaces []pendingInterface
	for i := uint32(0); i < interfacesCount; i++ {
		typeRef, pi, err := r.readInterfaceShell()
		if err != nil {
			return nil, err
		}
		if _, dup := types[typeRef]; dup {
			return nil, fmt.Errorf("codec: interface type %d declared twice before offset 0x%x", typeRef, r.Offset())
		}
		types[typeRef] = pi.ifc
		declared = append(declared, pi.ifc)
		pendingInterfaces = append(pendingInterfaces, pi)
	}

	resolve := func(ref int32) (schema.Type, error) {
		if ref < 0 {
			elem, ok := types[-ref]
			if !ok {
				return nil, fmt.Errorf("codec: reference to array of unknown type index %d", -ref)
			}
			return &schema.Array{Elem: elem}, nil
		}
		t, ok := types[ref]
		if !ok {
			return nil, fmt.Errorf("codec: reference to unknown type index %d", ref)
		}
		return t, nil
	}

	for _, pr := range pendingRecords {
		fields := make([]schema.Field, len(pr.fields))
		for i, f := range pr.fields {
			t, err := resolve(f.typeRef)
			if err != nil {
				return nil, err
			}
			fields[i] = schema.Field{Type: t, Name: f.name}
		}
		pr.rec.Fields = fields
	}

	for _, pi := range pendingInterfaces {
		methods := make([]*schema.Method, len(pi.methods))
		for i, pm := range pi.methods {
			args := make([]schema.Field, len(pm.argTypeRefs))
			for j, ref := range pm.argTypeRefs {
				t, err := resolve(ref)
				if err != nil {
					return nil, err
				}
				args[j] = schema.Field{Type: t, Name: pm.argNames[j]}
			}
			ret, err := resolve(pm.retTypeRef)
			if err != nil {
				return nil, err
			}
			methods[i] = &schema.Method{Name: pm.name, Arguments: args, ReturnType: ret}
		}
		pi.ifc.Methods = methods
	}

	digest := r.hash.Sum(nil)
	gotDigest := make([]byte, len(digest))
	if _, err := io.ReadFull(r.raw, gotDigest); err != nil {
		return nil, fmt.Errorf("codec: reading schema digest: %w", err)
	}
	if !bytes.Equal(digest, gotDigest) {
		return nil, fmt.Errorf("codec: sha256 sum of schema does not match: computed %x, read %x", digest, gotDigest)
	}

	return schema.New(label, declared, r.bytesMethodRef, r.bytesObjectRef, digest)
}

func (r *SchemaReader) readBlockTag(want byte) error {
	got, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("codec: expected block tag 0x%02x at offset 0x%x, got 0x%02x", want, r.Offset()-1, got)
	}
	return nil
}

func (r *SchemaReader) readEnum() (int32, *schema.Enum, error) {
	if err := r.readBlockTag(DeclareEnum); err != nil {
		return 0, nil, err
	}
	typeRef, err := r.ReadTypeRef()
	if err != nil {
		return 0, nil, err
	}
	name, err := r.ReadName()
	if err != nil {
		return 0, nil, err
	}
	count, err := r.ReadUint32()
	if err != nil {
		return 0, nil, err
	}
	values := make([]string, count)
	for i := range values {
		values[i], err = r.ReadName()
		if err != nil {
			return 0, nil, err
		}
	}
	e, err := schema.NewEnum(name, values)
	if err != nil {
		return 0, nil, err
	}
	return typeRef, e, nil
}

func (r *SchemaReader) readRecordShell() (int32, pendingRecord, error) {
	if err := r.readBlockTag(DeclareRecord); err != nil {
		return 0, pendingRecord{}, err
	}
	typeRef, err := r.ReadTypeRef()
	if err != nil {
		return 0, pendingRecord{}, err
	}
	name, err := r.ReadName()
	if err != nil {
		return 0, pendingRecord{}, err
	}
	rec, err := schema.NewRecordShell(name)
	if err != nil {
		return 0, pendingRecord{}, err
	}
	count, err := r.ReadUint32()
	if err != nil {
		return 0, pendingRecord{}, err
	}
	fields := make([]pendingField, count)
	for i := range fields {
		ref, err := r.ReadTypeRef()
		if err != nil {
			return 0, pendingRecord{}, err
		}
		name, err := r.ReadName()
		if err != nil {
			return 0, pendingRecord{}, err
		}
		fields[i] = pendingField{typeRef: ref, name: name}
	}
	return typeRef, pendingRecord{rec: rec, fields: fields}, nil
}

func (r *SchemaReader) readInterfaceShell() (int32, pendingInterface, error) {
	if err := r.readBlockTag(DeclareInterface); err != nil {
		return 0, pendingInterface{}, err
	}
	typeRef, err := r.ReadTypeRef()
	if err != nil {
		return 0, pendingInterface{}, err
	}
	name, err := r.ReadName()
	if err != nil {
		return 0, pendingInterface{}, err
	}
	ifc, err := schema.NewInterfaceShell(name)
	if err != nil {
		return 0, pendingInterface{}, err
	}
	count, err := r.ReadUint32()
	if err != nil {
		return 0, pendingInterface{}, err
	}
	methods := make([]pendingMethod, count)
	for i := range methods {
		pm, err := r.readMethod()
		if err != nil {
			return 0, pendingInterface{}, err
		}
		methods[i] = pm
	}
	return typeRef, pendingInterface{ifc: ifc, methods: methods}, nil
}

func (r *SchemaReader) readMethod() (pendingMethod, error) {
	if _, err := r.ReadUnsignedInteger(r.bytesMethodRef); err != nil {
		return pendingMethod{}, err
	}
	name, err := r.ReadName()
	if err != nil {
		return pendingMethod{}, err
	}
	argCount, err := r.ReadUint32()
	if err != nil {
		return pendingMethod{}, err
	}
	argRefs := make([]int32, argCount)
	argNames := make([]string, argCount)
	for i := range argRefs {
		argRefs[i], err = r.ReadTypeRef()
		if err != nil {
			return pendingMethod{}, err
		}
		argNames[i], err = r.ReadName()
		if err != nil {
			return pendingMethod{}, err
		}
	}
	retRef, err := r.ReadTypeRef()
	if err != nil {
		return pendingMethod{}, err
	}
	return pendingMethod{argTypeRefs: argRefs, argNames: argNames, name: name, retTypeRef: retRef}, nil
}

// ReadSchema reads a full schema frame from in.
func ReadSchema(in io.Reader) (*schema.Schema, error) {
	return NewSchemaReader(in).ReadSchema()
}

// SchemaFromBytes deserializes a schema from a standalone byte slice.
func SchemaFromBytes(b []byte) (*schema.Schema, error) {
	return ReadSchema(bytes.NewReader(b))
}
