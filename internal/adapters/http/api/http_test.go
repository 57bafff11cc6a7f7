package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pubtrivia/tally/internal/adapters/auth"
	"github.com/pubtrivia/tally/internal/adapters/http/api"
	"github.com/pubtrivia/tally/internal/adapters/repository"
	service "github.com/pubtrivia/tally/internal/app"
	"github.com/pubtrivia/tally/internal/domain/model"
	"github.com/pubtrivia/tally/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := service.New(
		service.WithStore(repository.NewMemStore()),
		service.WithGranter(auth.NewGranter([]string{"boss@example.com"}, "google.com")),
		service.WithBracketSize(8),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, auth.NewVerifier(testSecret), 100).Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func signTestToken(t *testing.T, subject, email, provider string, admin bool) string {
	t.Helper()
	token, err := auth.SignToken(testSecret, subject, email, provider, admin, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestEntriesEndpoints(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts := newTestServer(t)

		Convey("A valid submission is recorded and visible on /today", func() {
			resp := doJSON(t, ts, http.MethodPost, "/entries", "", map[string]string{
				"alias": "ann", "displayName": "Ann", "score": "9/10",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp = doJSON(t, ts, http.MethodGet, "/today", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			entries := decode[[]model.DailyEntry](t, resp)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Alias, ShouldEqual, "ann")
		})

		Convey("The daily board comes back in display order", func() {
			for alias, score := range map[string]string{"cat": "8/10", "ann": "10/10", "bob": "9/10"} {
				resp := doJSON(t, ts, http.MethodPost, "/entries", "", map[string]string{
					"alias": alias, "displayName": alias, "score": score,
				})
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			}

			resp := doJSON(t, ts, http.MethodGet, "/today", "", nil)
			entries := decode[[]model.DailyEntry](t, resp)
			So(entries, ShouldHaveLength, 3)
			So(entries[0].Alias, ShouldEqual, "ann")
			So(entries[2].Alias, ShouldEqual, "cat")
		})

		Convey("Missing fields are a 400", func() {
			resp := doJSON(t, ts, http.MethodPost, "/entries", "", map[string]string{
				"alias": "ann", "score": "9/10",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A malformed score is a 400", func() {
			resp := doJSON(t, ts, http.MethodPost, "/entries", "", map[string]string{
				"alias": "ann", "displayName": "Ann", "score": "nine/ten",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A zero denominator is a 400", func() {
			resp := doJSON(t, ts, http.MethodPost, "/entries", "", map[string]string{
				"alias": "ann", "displayName": "Ann", "score": "3/0",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET on /entries is not a route", func() {
			resp := doJSON(t, ts, http.MethodGet, "/entries", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	Convey("Given a running API server with a settled board", t, func() {
		ts := newTestServer(t)
		adminToken := signTestToken(t, "admin-uid", "admin@example.com", "google.com", true)
		playerToken := signTestToken(t, "player-uid", "guest@example.com", "google.com", false)

		for alias, score := range map[string]string{"ann": "10/10", "bob": "5/10"} {
			resp := doJSON(t, ts, http.MethodPost, "/entries", "", map[string]string{
				"alias": alias, "displayName": alias, "score": score,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		}

		Convey("finish-day without a token is a 401", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/finish-day", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("finish-day with a garbage token is a 401", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/finish-day", "not-a-jwt", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("finish-day as a non-admin is a 403", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/finish-day", playerToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})

		Convey("finish-day as admin settles and clears the board", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/finish-day", adminToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			res := decode[service.FinishDayResult](t, resp)
			So(res.Awarded, ShouldEqual, 2)
			So(res.FirstsAdded, ShouldEqual, 1)
			So(res.LastsAdded, ShouldEqual, 1)

			resp = doJSON(t, ts, http.MethodGet, "/today", "", nil)
			So(decode[[]model.DailyEntry](t, resp), ShouldBeEmpty)

			resp = doJSON(t, ts, http.MethodGet, "/standings", "", nil)
			records := decode[[]model.StandingRecord](t, resp)
			So(records, ShouldHaveLength, 2)
			So(records[0].ID, ShouldEqual, "ann")
			So(records[0].Points, ShouldEqual, 10)
			So(records[1].Points, ShouldEqual, 9)
		})

		Convey("adjust-points validates its body", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/adjust-points", adminToken, map[string]any{
				"docId": "ann",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			resp = doJSON(t, ts, http.MethodPost, "/admin/adjust-points", adminToken, map[string]any{
				"mode": "set", "value": 3,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("adjust-points set then reset-points", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/adjust-points", adminToken, map[string]any{
				"docId": "ann", "mode": "set", "value": 42, "alias": "ann", "displayName": "Ann",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp = doJSON(t, ts, http.MethodGet, "/standings", "", nil)
			records := decode[[]model.StandingRecord](t, resp)
			So(records[0].Points, ShouldEqual, 42)

			resp = doJSON(t, ts, http.MethodPost, "/admin/reset-points", adminToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decode[service.ResetResult](t, resp).Reset, ShouldEqual, 1)
		})

		Convey("adjust-finishes clamps a negative set to zero", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/adjust-finishes", adminToken, map[string]any{
				"docId": "ann", "mode": "set", "firsts": -3,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp = doJSON(t, ts, http.MethodGet, "/hall/fame", "", nil)
			So(decode[[]model.StandingRecord](t, resp), ShouldBeEmpty)
		})

		Convey("merge-alias combines records over HTTP", func() {
			for _, body := range []map[string]any{
				{"docId": "ann", "mode": "set", "value": 5, "alias": "ann"},
				{"docId": "annie", "mode": "set", "value": 3, "alias": "annie"},
			} {
				resp := doJSON(t, ts, http.MethodPost, "/admin/adjust-points", adminToken, body)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			}

			resp := doJSON(t, ts, http.MethodPost, "/admin/merge-alias", adminToken, map[string]string{
				"oldId": "ann", "newAlias": "annie",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decode[service.MergeResult](t, resp).To, ShouldEqual, "annie")

			resp = doJSON(t, ts, http.MethodGet, "/standings", "", nil)
			records := decode[[]model.StandingRecord](t, resp)
			for _, rec := range records {
				So(rec.ID, ShouldNotEqual, "ann")
				if rec.ID == "annie" {
					So(rec.Points, ShouldEqual, 8)
				}
			}
		})

		Convey("delete-record reports not-found without failing", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/delete-record", adminToken, map[string]string{
				"docId": "ghost",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decode[service.DeleteResult](t, resp).Deleted, ShouldBeFalse)
		})
	})
}

func TestGrantEndpoint(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts := newTestServer(t)

		Convey("An anonymous grant is a 401", func() {
			resp := doJSON(t, ts, http.MethodPost, "/admin/grant", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("A caller outside the allow-list is a 403", func() {
			token := signTestToken(t, "someone", "someone@example.com", "google.com", false)
			resp := doJSON(t, ts, http.MethodPost, "/admin/grant", token, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})

		Convey("The wrong provider is a 403 even when allow-listed", func() {
			token := signTestToken(t, "boss-uid", "boss@example.com", "github.com", false)
			resp := doJSON(t, ts, http.MethodPost, "/admin/grant", token, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})

		Convey("An allow-listed caller gains admin for subsequent calls", func() {
			token := signTestToken(t, "boss-uid", "boss@example.com", "google.com", false)
			resp := doJSON(t, ts, http.MethodPost, "/admin/grant", token, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp = doJSON(t, ts, http.MethodPost, "/admin/finish-day", token, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given a server with standings", t, func() {
		ts := newTestServer(t)
		adminToken := signTestToken(t, "admin-uid", "admin@example.com", "google.com", true)

		seed := func(id string, points, firsts, lasts int) {
			resp := doJSON(t, ts, http.MethodPost, "/admin/adjust-points", adminToken, map[string]any{
				"docId": id, "mode": "set", "value": points, "alias": id, "displayName": id,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp = doJSON(t, ts, http.MethodPost, "/admin/adjust-finishes", adminToken, map[string]any{
				"docId": id, "mode": "set", "firsts": firsts, "lasts": lasts,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		}
		seed("ann", 30, 3, 0)
		seed("bob", 20, 1, 2)
		seed("cat", 10, 0, 1)

		Convey("Standings honor the limit parameter", func() {
			resp := doJSON(t, ts, http.MethodGet, "/standings?limit=2", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			records := decode[[]model.StandingRecord](t, resp)
			So(records, ShouldHaveLength, 2)
			So(records[0].ID, ShouldEqual, "ann")
		})

		Convey("A bogus limit is a 400", func() {
			resp := doJSON(t, ts, http.MethodGet, "/standings?limit=zero", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A limit past the cap is a 400", func() {
			resp := doJSON(t, ts, http.MethodGet, "/standings?limit=9999", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("The halls filter and order by their counter", func() {
			resp := doJSON(t, ts, http.MethodGet, "/hall/fame", "", nil)
			fame := decode[[]model.StandingRecord](t, resp)
			So(fame, ShouldHaveLength, 2)
			So(fame[0].ID, ShouldEqual, "ann")

			resp = doJSON(t, ts, http.MethodGet, "/hall/shame", "", nil)
			shame := decode[[]model.StandingRecord](t, resp)
			So(shame, ShouldHaveLength, 2)
			So(shame[0].ID, ShouldEqual, "bob")
		})

		Convey("The bracket seeds the field with byes", func() {
			resp := doJSON(t, ts, http.MethodGet, "/bracket", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var b struct {
				Seeds []struct {
					Seed int    `json:"seed"`
					Name string `json:"name"`
					Bye  bool   `json:"bye"`
				} `json:"seeds"`
			}
			So(json.NewDecoder(resp.Body).Decode(&b), ShouldBeNil)
			So(b.Seeds, ShouldHaveLength, 8)
			So(b.Seeds[0].Name, ShouldEqual, "ann")
			So(b.Seeds[7].Bye, ShouldBeTrue)
		})

		Convey("Stats and health respond", func() {
			resp := doJSON(t, ts, http.MethodGet, "/stats", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			stats := decode[map[string]any](t, resp)
			So(stats["started"], ShouldEqual, true)

			resp = doJSON(t, ts, http.MethodGet, "/healthz", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("An unknown watch collection is a 400", func() {
			resp := doJSON(t, ts, http.MethodGet, "/watch?collection=nope", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}
