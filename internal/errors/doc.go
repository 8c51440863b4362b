// Package errors provides coded, user-facing errors for the vtree CLI and
// services.
//
// Library packages return plain sentinel errors. At the edges (config
// loading, command execution, input parsing, wire handling) those are
// wrapped in an *Error carrying a stable code such as "VT120", a short
// message, an optional detail and suggestion, and a documentation link.
//
// # Error Codes
//
//	VT001-VT019  input: unreadable or malformed HTML and tree files
//	VT020-VT039  reconcile: render and verification failures
//	VT060-VT079  protocol: frames and host lifecycle
//	VT120-VT139  config
//	VT140-VT159  snapshot storage
//	VT160-VT179  cli
//
// # Usage
//
//	err := errors.New("VT122").
//	    WithDetail("looked in ./deploy").
//	    WithSuggestion("Create vtree.json or pass --config")
//
//	fmt.Fprint(os.Stderr, err.Format())
//	// ERROR VT122: Configuration file not found
//	//
//	//   looked in ./deploy
//	//
//	//   Hint: Create vtree.json or pass --config
//	//
//	//   Learn more: https://vtree.dev/docs/errors/VT122
package errors
