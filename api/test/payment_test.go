package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/inchambers/commerce/api/web"
)

type paystackInit struct {
	Email       string `json:"email"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url"`
	Reference   string `json:"reference"`
	Metadata    string `json:"metadata"`
}

// mockPaystack records initializations and answers verifications with
// the status set for each reference.
type mockPaystack struct {
	mu         sync.Mutex
	inits      []paystackInit
	status     map[string]string
	failInit   bool
	failVerify bool
}

func newMockPaystack() *mockPaystack {
	return &mockPaystack{status: make(map[string]string)}
}

func (m *mockPaystack) handle() http.Handler {
	initialize := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		var in paystackInit
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			web.Respond(context.Background(), w, map[string]any{"status": false, "message": "bad body"}, http.StatusBadRequest)
			return
		}

		if m.failInit {
			web.Respond(context.Background(), w, map[string]any{"status": false, "message": "Invalid key"}, http.StatusUnauthorized)
			return
		}

		m.inits = append(m.inits, in)
		m.status[in.Reference] = "abandoned"

		web.Respond(context.Background(), w, map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/" + in.Reference,
				"access_code":       fmt.Sprintf("ac_%d", len(m.inits)),
				"reference":         in.Reference,
			},
		}, http.StatusOK)
	})

	verify := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.failVerify {
			web.Respond(context.Background(), w, map[string]any{"status": false, "message": "Gateway timeout"}, http.StatusBadGateway)
			return
		}

		ref := mux.Vars(r)["reference"]
		st, ok := m.status[ref]
		if !ok {
			web.Respond(context.Background(), w, map[string]any{"status": false, "message": "Transaction reference not found"}, http.StatusNotFound)
			return
		}

		web.Respond(context.Background(), w, map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data":    map[string]any{"id": 4099260516, "status": st},
		}, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/transaction/initialize", initialize).Methods(http.MethodPost)
	r.Handle("/transaction/verify/{reference}", verify).Methods(http.MethodGet)
	return r
}

func (m *mockPaystack) pay(reference string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[reference] = "success"
}

func (m *mockPaystack) initCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inits)
}

func (m *mockPaystack) lastInit() paystackInit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits[len(m.inits)-1]
}

func (m *mockPaystack) setFailures(initFails, verifyFails bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInit, m.failVerify = initFails, verifyFails
}
