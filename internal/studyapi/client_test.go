package studyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripFunc adapts a function to the HTTPClient interface.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestStatus(t *testing.T) {
	var gotURL string
	c := NewWithClient("http://api.test", "tok", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		return jsonResponse(200, `{"planId":7,"currentDay":3,"goal":"TOEIC 900","personaName":"RABBIT","lastStudyDate":"2026-08-31"}`), nil
	}))

	st, err := c.Status(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/api/study/status?planId=7", gotURL)
	assert.Equal(t, int64(7), st.PlanID)
	assert.Equal(t, 3, st.CurrentDay)
	assert.Equal(t, "RABBIT", st.PersonaName)
}

func TestStatusNotFoundIsNoActiveState(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(404, `{"error":"not found"}`), nil
	}))

	st, err := c.Status(context.Background(), 1)
	assert.Nil(t, st)
	assert.ErrorIs(t, err, ErrNoActiveState)
}

func TestStartClassDecodesSchedule(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/tutor/class/start", req.URL.Path)

		var body ClassStartRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "RABBIT", body.PersonaName)
		assert.Equal(t, 3, body.DayCount)

		return jsonResponse(200, `{"aiMessage":"안녕!","audioUrl":"/audio/1.mp3","schedule":{"CLASS":1800,"BREAK":300}}`), nil
	}))

	res, err := c.StartClass(context.Background(), &ClassStartRequest{
		PlanID: 7, DayCount: 3, PersonaName: "RABBIT", DailyMood: "NORMAL", NeedsTts: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "안녕!", res.AiMessage)
	assert.Equal(t, map[string]int{"CLASS": 1800, "BREAK": 300}, res.Schedule)
}

func TestChatErrorSurfacesStatus(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(500, `boom`), nil
	}))

	_, err := c.Chat(context.Background(), &ChatRequest{PlanID: 1, Message: "hi"})
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)
	assert.Contains(t, se.Error(), "boom")
}

func TestSubmitTestMultipart(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		mt, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mt)

		mr := multipart.NewReader(req.Body, params["boundary"])
		form, err := mr.ReadForm(1 << 20)
		require.NoError(t, err)

		assert.JSONEq(t, `{"planId":7,"textAnswer":"42"}`, form.Value["data"][0])
		require.Len(t, form.File["image"], 1)
		assert.Equal(t, "answer.png", form.File["image"][0].Filename)

		return jsonResponse(200, `{"score":80,"isPassed":true,"aiFeedback":"Good"}`), nil
	}))

	res, err := c.SubmitTest(context.Background(), 7, "42", []byte{0x89, 0x50}, "answer.png")
	require.NoError(t, err)
	assert.Equal(t, 80, res.Score)
	assert.True(t, res.IsPassed)
}

func TestSubmitTestOmitsEmptyImage(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		_, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
		require.NoError(t, err)
		mr := multipart.NewReader(req.Body, params["boundary"])
		form, err := mr.ReadForm(1 << 20)
		require.NoError(t, err)

		assert.Empty(t, form.File["image"])
		return jsonResponse(200, `{"score":50,"isPassed":false,"aiFeedback":"다시"}`), nil
	}))

	res, err := c.SubmitTest(context.Background(), 7, "idk", nil, "")
	require.NoError(t, err)
	assert.False(t, res.IsPassed)
}

func TestUploadAudioReturnsText(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/tutor/stt", req.URL.Path)
		return jsonResponse(200, "안녕하세요\n"), nil
	}))

	text, err := c.UploadAudio(context.Background(), []byte("riff"), "recording.webm")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", text)
}

func TestGenerateAiFeedbackPath(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/study/plans/42/ai-feedback", req.URL.Path)
		assert.Equal(t, http.MethodPost, req.Method)
		return jsonResponse(200, `{"feedback":"수고했어요"}`), nil
	}))

	res, err := c.GenerateAiFeedback(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "수고했어요", res.Feedback)
}

func TestCalendarQueryAndDecode(t *testing.T) {
	var gotURL string
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		return jsonResponse(200, `{"year":2026,"month":8,"days":[
			{"date":"2026-08-12","dayCount":3,"dailySummary":"★ 방정식 복습","testScore":85,"isCompleted":true}
		]}`), nil
	}))

	cal, err := c.Calendar(context.Background(), 2026, 8, 7)
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/api/study/calendar?month=8&planId=7&year=2026", gotURL)
	assert.Equal(t, 2026, cal.Year)
	require.Len(t, cal.Days, 1)
	assert.Equal(t, "2026-08-12", cal.Days[0].Date)
	assert.Equal(t, 85, cal.Days[0].TestScore)
	assert.True(t, cal.Days[0].IsCompleted)
}

func TestCalendarOmitsZeroPlan(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.False(t, req.URL.Query().Has("planId"))
		return jsonResponse(200, `{"year":2026,"month":8,"days":[]}`), nil
	}))

	cal, err := c.Calendar(context.Background(), 2026, 8, 0)
	require.NoError(t, err)
	assert.Empty(t, cal.Days)
}

func TestPlanDetailPath(t *testing.T) {
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/study/plans/7", req.URL.Path)
		assert.Equal(t, http.MethodGet, req.Method)
		return jsonResponse(200, `{"planId":7,"goal":"중학 수학","currentDay":3,"totalDays":30,"personaName":"RABBIT"}`), nil
	}))

	p, err := c.PlanDetail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.PlanID)
	assert.Equal(t, "중학 수학", p.Goal)
	assert.Equal(t, 30, p.TotalDays)
}

func TestDownloadReview(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")
	c := NewWithClient("http://api.test", "", roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/study/review/download", req.URL.Path)
		assert.Equal(t, "7", req.URL.Query().Get("planId"))
		assert.Equal(t, "3", req.URL.Query().Get("dayCount"))
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(pdf))}, nil
	}))

	got, err := c.DownloadReview(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)
}
