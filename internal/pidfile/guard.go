package pidfile

import (
	"fmt"
	"runtime/debug"

	"github.com/techdivision/import-app-simple/internal/logging"
)

// Guard turns a panic in the surrounding function into a *FatalError stored in
// *errp after releasing the held serial. Use it as
//
//	if err := h.Lock(serial); err != nil {
//		return err
//	}
//	defer h.Guard(&err)
//
// Release failures during the guard are swallowed. Normal returns are left
// untouched.
func (h *Handler) Guard(errp *error) {
	r := recover()
	if r == nil {
		return
	}

	serial := h.Serial()
	fatal := &FatalError{Serial: serial, Value: r, Stack: debug.Stack()}
	h.logger.Error("import aborted by fatal error",
		logging.String(logging.FieldEventType, "fatal_error"),
		logging.String(logging.FieldSerial, serial),
		logging.String("panic", fmt.Sprint(r)),
		logging.String(logging.FieldImpact, "the run was abandoned; its serial is removed from the lock file"),
	)
	h.releaseQuietly(serial)

	if errp != nil {
		*errp = fatal
	}
}

func (h *Handler) releaseQuietly(serial string) {
	defer func() {
		_ = recover()
	}()
	_ = h.Unlock(serial)
}
