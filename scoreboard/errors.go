package scoreboard

import (
	"errors"
	"net/http"

	"github.com/programme-lv/scoreboard/srvcerror"
)

// ErrContestNotFound is returned by contest stores for unknown contest ids.
var ErrContestNotFound = errors.New("contest not found")

// ErrDataAccess matches any error produced by a failing store collaborator.
var ErrDataAccess = srvcerror.ErrInvalidDatabaseOperation()

const ErrCodeContestNotFound = "contest_not_found"

func newErrContestNotFound() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeContestNotFound,
		"sacensības netika atrastas",
	).SetHttpStatusCode(http.StatusNotFound)
}

// dataAccessErr maps a collaborator failure onto the service error returned to callers.
func dataAccessErr(err error) error {
	if errors.Is(err, ErrContestNotFound) {
		return newErrContestNotFound().SetDebug(err)
	}
	return srvcerror.ErrInvalidDatabaseOperation().SetDebug(err)
}
