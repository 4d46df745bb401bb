package machine

// Edit applies a flat parameter edit and commits it. Nothing changes if any
// pair fails to parse. The circuit is rederived only when a parameter was
// assigned; a bare "help" sends HelpText to the message function.
func (m *Model) Edit(s string) error {
	res, err := m.Params.ApplyEdit(s)
	if err != nil {
		return err
	}
	if res.Help && m.msg != nil {
		m.msg(HelpText)
	}
	if res.Changed {
		m.Update()
	}
	return nil
}

// SetParams replaces every parameter and commits.
func (m *Model) SetParams(p Params) {
	m.Params = p
	m.Update()
}

// SetMessageFunc sets where the model sends text meant for the user.
func (m *Model) SetMessageFunc(fn func(string)) { m.msg = fn }

func (m *Model) DebugEnabled() bool { return m.Debug }
