package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"canvas-analytics-etl/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Canvas.BaseURL = baseURL
	cfg.Canvas.Token = "test-token"
	cfg.Canvas.Timeout = 2 * time.Second
	cfg.Canvas.RetryLimit = 3
	cfg.Canvas.Backoff = time.Millisecond
	cfg.Canvas.PerPage = 100
	cfg.Canvas.CourseIDs = []string{"c1"}
	cfg.Fetch.WorkerCount = 4
	return cfg
}

func TestFetchRecordsFollowsNextLinks(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/page1", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Link", fmt.Sprintf(`<%s/page2>; rel="next", <%s/page1>; rel="current"`, server.URL, server.URL))
		fmt.Fprint(w, `[{"n":1},{"n":2}]`)
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"n":3}]`)
	})

	client := NewClient(testConfig(server.URL))
	records, complete := client.FetchRecords(context.Background(), server.URL+"/page1")

	assert.True(t, complete)
	assert.Len(t, records, 3, "pages are concatenated in order")
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestFetchRecordsRetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[{"n":1}]`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	records, complete := client.FetchRecords(context.Background(), server.URL+"/")

	assert.True(t, complete)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, attempts, "the same page is retried without consuming a pagination step")
}

func TestFetchRecordsKeepsPartialPagesOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/page1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", fmt.Sprintf(`<%s/page2>; rel="next"`, server.URL))
		fmt.Fprint(w, `[{"n":1},{"n":2}]`)
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := NewClient(testConfig(server.URL))
	records, complete := client.FetchRecords(context.Background(), server.URL+"/page1")

	assert.False(t, complete)
	assert.Len(t, records, 2, "pages collected before the failure are preserved")
}

func TestFetchRecordsTreatsUnexpectedShapeAsEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"unexpected"}]}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	records, complete := client.FetchRecords(context.Background(), server.URL+"/")

	assert.True(t, complete)
	assert.Empty(t, records)
}

func TestParseNextLink(t *testing.T) {
	header := `<https://example.com/api?page=2>; rel="next", <https://example.com/api?page=1>; rel="first"`
	assert.Equal(t, "https://example.com/api?page=2", parseNextLink(header))
	assert.Equal(t, "", parseNextLink(`<https://example.com/api?page=1>; rel="first"`))
	assert.Equal(t, "", parseNextLink(""))
}

func TestFetchAssignmentsFailedSubjectStillPresent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/courses/c1/analytics/users/bad/assignments" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[{"assignment_id":1,"title":"HW 1"}]`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Canvas.RetryLimit = 2

	fetcher := NewFetcher(cfg)
	merged, summary := fetcher.FetchAssignments(context.Background(), []string{"ok", "bad"})

	require.Contains(t, merged, "bad", "failed subject is present, not raised")
	assert.Empty(t, merged["bad"])
	assert.Len(t, merged["ok"], 1)
	assert.Equal(t, 1, summary.FailedSubjects)
	assert.Equal(t, 2, summary.Subjects)
}

func TestFetchAssignmentsConcatenatesAcrossCourses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"assignment_id":1,"title":"HW 1"}]`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Canvas.CourseIDs = []string{"c1", "c2"}

	fetcher := NewFetcher(cfg)
	merged, summary := fetcher.FetchAssignments(context.Background(), []string{"s1"})

	assert.Len(t, merged["s1"], 2, "records from both courses are concatenated")
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 0, summary.FailedSubjects)
}

func TestFetchAssignmentsMergesInCourseOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		course := "c1"
		if strings.Contains(r.URL.Path, "/courses/c2/") {
			course = "c2"
		}
		fmt.Fprintf(w, `[{"assignment_id":1,"title":"%s"}]`, course)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Canvas.CourseIDs = []string{"c1", "c2"}

	fetcher := NewFetcher(cfg)
	for i := 0; i < 5; i++ {
		merged, _ := fetcher.FetchAssignments(context.Background(), []string{"s1"})

		require.Len(t, merged["s1"], 2)
		assert.Equal(t, "c1", merged["s1"][0].Title, "configured course order, not task completion order")
		assert.Equal(t, "c2", merged["s1"][1].Title)
	}
}
