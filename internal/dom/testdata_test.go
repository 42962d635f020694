package dom

// transcript builds a small chat page: a panel that must never be indexed,
// then alternating messages.
func transcript(messages ...string) *Node {
	body := E("body", nil,
		E("nav", Attrs{"id": "chat-toc-panel"}, E("div", Attrs{"class": "message"}, T("panel entry"))),
	)
	for i, m := range messages {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msg := E("div", Attrs{"class": "message", "data-author": role}, T(m))
		msg.Parent = body
		body.Children = append(body.Children, msg)
	}
	return body
}
