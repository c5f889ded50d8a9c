package executor

// Line-delimited JSON exchanged between the process executor and its children
// over the child's stdin/stdout.
//
//	parent -> child  hello     once, names the transform to build
//	child  -> parent ready     once, after the transform is built
//	parent -> child  request   one per assigned item
//	child  -> parent response  one per request, same seq

type hello struct {
	Transform string `json:"transform"`
}

type ready struct {
	OK    bool   `json:"ok"`
	PID   int    `json:"pid"`
	Error string `json:"error,omitempty"`
}

type request struct {
	Seq         int    `json:"seq"`
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Persist     bool   `json:"persist"`
}

type response struct {
	Seq         int    `json:"seq"`
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Digest      uint64 `json:"digest"`
	Bytes       int    `json:"bytes"`
	Error       string `json:"error,omitempty"`
}
