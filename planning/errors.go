package planning

import (
	"errors"
)

// errUnparseable marks plan attempts where the model never produced JSON at
// all, as opposed to JSON that failed structural validation.
var errUnparseable = errors.New("plan response is not valid JSON")
