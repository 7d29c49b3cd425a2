package dialogue

// runEnd closes the conversation politely and returns the session to idle.
func (a *Agent) runEnd(sess *Session) stageOutput {
	sess.Reset()
	sess.CurrentDoctor = ""
	return stageOutput{text: "Thank you for using our appointment service. Have a great day!"}
}
