package canonkv

// ValueParser is the external textual-value-syntax collaborator (§6, §9):
// given a resolved type and its text rendering, it produces a RuntimeValue.
// The core never parses value syntax itself, mirroring how it never parses
// IDL syntax itself (IDLParser).
type ValueParser interface {
	ParseValue(g TypeGraph, ref TypeRef, text string) (RuntimeValue, error)
}

// ValuePrinter is the inverse of ValueParser: it renders a RuntimeValue back
// to the human-readable text syntax.
type ValuePrinter interface {
	PrintValue(g TypeGraph, ref TypeRef, v RuntimeValue) (string, error)
}

// SetText converts text to a RuntimeValue via parser and stores it under
// (keyspace, key), per §4.6's "set(keyspace, key, text_or_runtime_value)".
// It is a thin convenience wrapper: everything past the text->RuntimeValue
// step is identical to Set.
func (s *Store) SetText(parser ValueParser, keyspace, key, text string) error {
	g, ref, _, err := s.loadGraph(keyspace)
	if err != nil {
		return err
	}
	var v RuntimeValue
	if err := safelyCall(func() (err error) {
		v, err = parser.ParseValue(g, ref, text)
		return err
	}); err != nil {
		return storeErrf(KindIdlParseError, keyspace, []byte(key), err, "parsing value text")
	}
	return s.Set(keyspace, key, v)
}

// GetText loads (keyspace, key) and renders it to text via printer, per
// §4.6's "get(...) (callers may route to text or binary form)".
func (s *Store) GetText(printer ValuePrinter, keyspace, key string) (string, error) {
	v, err := s.Get(keyspace, key)
	if err != nil {
		return "", err
	}
	g, ref, _, err := s.loadGraph(keyspace)
	if err != nil {
		return "", err
	}
	var text string
	if err := safelyCall(func() (err error) {
		text, err = printer.PrintValue(g, ref, v)
		return err
	}); err != nil {
		return "", storeErrf(KindIdlParseError, keyspace, []byte(key), err, "printing value text")
	}
	return text, nil
}
