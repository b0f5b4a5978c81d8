package models

// Event es un registro generado, tal como se publica en el topic.
type Event map[string]any

func (e Event) Clone() Event {
	c := make(Event, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}

// StringField devuelve el valor de un campo como texto, si existe.
func (e Event) StringField(field string) (string, bool) {
	v, ok := e[field]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return "", false
}
