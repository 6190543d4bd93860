package chat

type Button struct {
	Text string `json:"text"`
	Data string `json:"callbackData"`
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

func (k Keyboard) Empty() bool {
	return len(k) == 0
}

// Buttons flattens the keyboard row by row.
func (k Keyboard) Buttons() []Button {
	var out []Button
	for _, row := range k {
		out = append(out, row...)
	}
	return out
}
