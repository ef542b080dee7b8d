package response

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/stretchr/testify/assert"

	"ChallengeUp/pkg/errors"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.DuplicateParticipation, http.StatusConflict},
		{errors.AlreadyCheckedInToday, http.StatusConflict},
		{errors.AlreadyCompleted, http.StatusConflict},
		{errors.CheckInConflict, http.StatusConflict},
		{errors.NoteTooLong, http.StatusUnprocessableEntity},
		{errors.ParticipationNotFound, http.StatusNotFound},
		{errors.ChallengeNotJoinable, http.StatusForbidden},
		{errors.WithCause(errors.StoreUnavailable, stderrors.New("dial tcp: refused")), http.StatusServiceUnavailable},
		{fmt.Errorf("join: %w", errors.DuplicateParticipation), http.StatusConflict},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.err), tc.err.Error())
	}
}

func TestErrorHidesInternalCause(t *testing.T) {
	c := app.NewContext(0)
	Error(context.Background(), c, errors.WithCause(errors.StoreUnavailable, stderrors.New("password=secret")))

	assert.Equal(t, http.StatusServiceUnavailable, c.Response.StatusCode())
	body := string(c.Response.Body())
	assert.Contains(t, body, `"code":"STORE_UNAVAILABLE"`)
	assert.NotContains(t, body, "secret")
}
