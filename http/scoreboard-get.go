package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/programme-lv/scoreboard/auth"
	"github.com/programme-lv/scoreboard/httpjson"
	"github.com/programme-lv/scoreboard/logger"
	"github.com/programme-lv/scoreboard/scoreboard"
	"github.com/programme-lv/scoreboard/srvcerror"
)

type scoreboardResponse struct {
	ProblemCount int                `json:"problem_count"`
	Ranking      []scoreboard.Entry `json:"ranking"`
}

type eventsResponse struct {
	ProblemCount int                `json:"problem_count"`
	Events       []scoreboard.Event `json:"events"`
}

const ErrCodeInvalidContestId = "invalid_contest_id"

func parseContestId(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "contestId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, srvcerror.New(ErrCodeInvalidContestId, "nederīgs sacensību identifikators").
			SetHttpStatusCode(http.StatusBadRequest)
	}
	return id, nil
}

// parseUsers returns nil when the filter is absent.
func parseUsers(r *http.Request) []string {
	raw := r.URL.Query().Get("users")
	if raw == "" {
		return nil
	}
	users := []string{}
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			users = append(users, u)
		}
	}
	return users
}

func (httpserver *HttpServer) getScoreboard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	contestId, err := parseContestId(r)
	if err != nil {
		httpjson.HandleError(log, w, err)
		return
	}

	query := r.URL.Query()
	details, _ := strconv.ParseBool(query.Get("details"))
	opts := scoreboard.GenerateOptions{
		WithRunDetails: details,
		SortByName:     query.Get("sort") == "name",
		FilterUsers:    parseUsers(r),
	}

	sb := httpserver.sbSrvc.ForContest(contestId, auth.IsPrivileged(r.Context()))
	ranking, err := sb.Generate(r.Context(), opts)
	if err != nil {
		httpjson.HandleError(log, w, err)
		return
	}
	if ranking == nil {
		ranking = []scoreboard.Entry{}
	}

	httpjson.WriteSuccessJson(w, scoreboardResponse{
		ProblemCount: sb.ProblemCount(),
		Ranking:      ranking,
	})
}

func (httpserver *HttpServer) getScoreboardEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	contestId, err := parseContestId(r)
	if err != nil {
		httpjson.HandleError(log, w, err)
		return
	}

	sb := httpserver.sbSrvc.ForContest(contestId, auth.IsPrivileged(r.Context()))
	events, err := sb.Events(r.Context())
	if err != nil {
		httpjson.HandleError(log, w, err)
		return
	}
	if events == nil {
		events = []scoreboard.Event{}
	}

	httpjson.WriteSuccessJson(w, eventsResponse{
		ProblemCount: sb.ProblemCount(),
		Events:       events,
	})
}
