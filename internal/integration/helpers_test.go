package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/stretchr/testify/require"
)

var keysToIgnore = map[string]struct{}{
	"timestamp":     {},
	"requestId":     {},
	"createdAt":     {},
	"paymentDate":   {},
	"issuedAt":      {},
	"transactionId": {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []http.Cookie) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(&c)
	}

	return req, nil
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore nondeterministic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}

		switch v := m[k].(type) {
		case map[string]any:
			cleanMap(v)
		case []any:
			for _, item := range v {
				if nested, ok := item.(map[string]any); ok {
					cleanMap(nested)
				}
			}
		}
	}
}

// serve runs a request through the full router and returns the recorded response.
func (a *TestApp) serve(t testing.TB, method, path string, body any, cookies []http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := prepareRequest(method, path, reader, nil, cookies)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.App.Routes().ServeHTTP(rec, req)

	return rec
}

func (a *TestApp) login(t testing.TB, email, password string) []http.Cookie {
	t.Helper()

	rec := a.serve(t, http.MethodPost, "/sessions", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	var cookies []http.Cookie
	for _, c := range rec.Result().Cookies() {
		cookies = append(cookies, *c)
	}
	require.NotEmpty(t, cookies, "login should set a session cookie")

	return cookies
}

func decodeBody[T any](t testing.TB, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())

	return v
}

func truncateAll(t testing.TB, db *pgxpool.Pool) {
	t.Helper()

	// receipts refuse row deletes, TRUNCATE bypasses row triggers
	_, err := db.Exec(context.Background(), `
		TRUNCATE receipts, payments, appointments, doctors, users RESTART IDENTITY CASCADE;
		ALTER SEQUENCE receipt_number_seq RESTART WITH 1;
	`)
	require.NoError(t, err)
}

func insertUser(t testing.TB, db *pgxpool.Pool, firstName, lastName, email, plaintext string) {
	t.Helper()

	var user domain.User
	require.NoError(t, user.Password.Set(plaintext))

	_, err := db.Exec(context.Background(), `
		INSERT INTO users (first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, firstName, lastName, email, user.Password.Hash)
	require.NoError(t, err)
}

// seedBaseState creates two patients, one doctor and three appointments:
// a scheduled and a cancelled one for the first patient, a scheduled one for the second.
func seedBaseState(t testing.TB, db *pgxpool.Pool) {
	t.Helper()

	truncateAll(t, db)

	insertUser(t, db, TestUserFirstName, TestUserLastName, TestUserEmail, TestUserPassword)
	insertUser(t, db, "John", "Smith", OtherUserEmail, OtherUserPassword)

	_, err := db.Exec(context.Background(), `
		INSERT INTO doctors (first_name, last_name, specialization)
		VALUES ($1, $2, $3)
	`, TestDoctorFirstName, TestDoctorLastName, TestDoctorSpecialization)
	require.NoError(t, err)

	_, err = db.Exec(context.Background(), `
		INSERT INTO appointments (patient_id, doctor_id, scheduled_at, status, reason)
		VALUES
			($1, $3, NOW() + INTERVAL '1 day', 'SCHEDULED', $4),
			($1, $3, NOW() + INTERVAL '2 day', 'CANCELLED', $4),
			($2, $3, NOW() + INTERVAL '3 day', 'SCHEDULED', '')
	`, TestUserId, OtherUserId, TestDoctorId, TestAppointmentReason)
	require.NoError(t, err)
}

func countRows(t testing.TB, db *pgxpool.Pool, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(context.Background(), query, args...).Scan(&n))

	return n
}

func paymentStatus(t testing.TB, db *pgxpool.Pool, paymentId int) string {
	t.Helper()

	var status string
	err := db.QueryRow(context.Background(), `SELECT status FROM payments WHERE id = $1`, paymentId).Scan(&status)
	require.NoError(t, err)

	return status
}

func appointmentStatus(t testing.TB, db *pgxpool.Pool, appointmentId int) string {
	t.Helper()

	var status string
	err := db.QueryRow(context.Background(), `SELECT status FROM appointments WHERE id = $1`, appointmentId).Scan(&status)
	require.NoError(t, err)

	return status
}

func createPaymentBody(appointmentId int) string {
	return fmt.Sprintf(`{"appointmentId": %d, "amount": "%s"}`, appointmentId, TestAmount)
}
