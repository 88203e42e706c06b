package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/types"
)

const maxPageSize = 1000

type (
	infoResponse struct {
		ChainID        types.ChainID      `json:"chainId"`
		Initialized    bool               `json:"initialized"`
		SourceChainID  *types.ChainID     `json:"sourceChainId,omitempty"`
		Admin          *types.Address     `json:"admin,omitempty"`
		Nonce          uint64             `json:"nonce"`
		Protocols      []types.ProtocolID `json:"protocols"`
		MasterContract *types.Bytes32     `json:"masterContract,omitempty"`
	}

	errorResponse struct {
		Code uint32 `json:"code,omitempty"`
		Name string `json:"name,omitempty"`
		Err  string `json:"error"`
	}
)

/*
EndpointEndpoints registers the REST API of the endpoint:

	GET  /info
	GET  /protocols/{id}
	GET  /operations/{hash}
	GET  /events?from=&limit=
	GET  /proposals?from=&limit=
	POST /initialize
	POST /admin
	POST /operations
	POST /operations/{hash}/signatures
	POST /operations/{hash}/execute
	POST /proposals

POST calls must be authenticated, see SignRequest.
*/
func EndpointEndpoints(engine Engine, log *slog.Logger, opts ...AuthOption) RegistrarFunc {
	return func(r *mux.Router) {
		h := &restHandlers{engine: engine, log: log, auth: newAuthenticator(opts...)}
		r.HandleFunc("/info", h.info).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/protocols/{id}", h.protocol).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/operations/{hash}", h.operation).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/events", h.events).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/proposals", h.proposals).Methods(http.MethodGet, http.MethodOptions)

		r.HandleFunc("/initialize", h.initialize).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/admin", h.setAdmin).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/operations", h.loadOperation).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/operations/{hash}/signatures", h.signOperation).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/operations/{hash}/execute", h.executeOperation).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/proposals", h.propose).Methods(http.MethodPost, http.MethodOptions)
	}
}

type restHandlers struct {
	engine Engine
	log    *slog.Logger
	auth   *authenticator
}

func (h *restHandlers) info(w http.ResponseWriter, r *http.Request) {
	rsp := infoResponse{ChainID: h.engine.ChainID()}
	cfg, err := h.engine.Config()
	switch {
	case err == nil:
		rsp.Initialized = true
		rsp.SourceChainID = &cfg.SourceChainID
		rsp.Admin = &cfg.Admin
		rsp.Nonce = cfg.Nonce
		rsp.MasterContract = &cfg.MasterContract
	case !errors.Is(err, types.ErrProtocolNotInit):
		h.writeError(w, r, err)
		return
	}
	if rsp.Protocols, err = h.engine.Protocols(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, rsp)
}

func (h *restHandlers) protocol(w http.ResponseWriter, r *http.Request) {
	var id types.ProtocolID
	if err := id.UnmarshalText([]byte(mux.Vars(r)["id"])); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid protocol id: %v", types.ErrProtocolNotInit, err))
		return
	}
	pi, err := h.engine.Protocol(id)
	if err != nil {
		h.writeErrorStatus(w, r, http.StatusNotFound, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, pi)
}

func (h *restHandlers) operation(w http.ResponseWriter, r *http.Request) {
	opHash, err := hashVar(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	oi, err := h.engine.Operation(opHash)
	if err != nil {
		h.writeErrorStatus(w, r, http.StatusNotFound, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, oi)
}

func (h *restHandlers) events(w http.ResponseWriter, r *http.Request) {
	from, limit, err := pageParams(r)
	if err != nil {
		h.writeErrorStatus(w, r, http.StatusBadRequest, err)
		return
	}
	evs, err := h.engine.Events(from, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, nonNil(evs))
}

func (h *restHandlers) proposals(w http.ResponseWriter, r *http.Request) {
	from, limit, err := pageParams(r)
	if err != nil {
		h.writeErrorStatus(w, r, http.StatusBadRequest, err)
		return
	}
	props, err := h.engine.Proposals(from, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, nonNil(props))
}

func (h *restHandlers) initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	caller, ok := h.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	if err := h.engine.Initialize(r.Context(), caller, req.params()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *restHandlers) setAdmin(w http.ResponseWriter, r *http.Request) {
	var req SetAdminRequest
	caller, ok := h.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	if err := h.engine.SetAdmin(r.Context(), caller, req.Admin); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *restHandlers) loadOperation(w http.ResponseWriter, r *http.Request) {
	var req LoadOperationRequest
	caller, ok := h.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	if req.OpData == nil {
		h.writeError(w, r, fmt.Errorf("%w: operation data is missing", types.ErrInvalidOpData))
		return
	}
	if err := h.engine.LoadOperation(r.Context(), caller, req.OpData, req.OpHash); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *restHandlers) signOperation(w http.ResponseWriter, r *http.Request) {
	opHash, err := hashVar(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req SignOperationRequest
	caller, ok := h.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	reached, err := h.engine.SignOperation(r.Context(), caller, opHash, req.Signatures)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, SignOperationResponse{ConsensusReached: reached})
}

func (h *restHandlers) executeOperation(w http.ResponseWriter, r *http.Request) {
	opHash, err := hashVar(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller, _, err := h.auth.authenticate(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.engine.ExecuteOperation(r.Context(), caller, opHash); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *restHandlers) propose(w http.ResponseWriter, r *http.Request) {
	var req ProposeRequest
	caller, ok := h.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	p, err := req.proposal()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ev, err := h.engine.Propose(r.Context(), caller, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, ev)
}

/*
decodeSigned authenticates the request and decodes the body into "v". When
false is returned the error response has been written already.
*/
func (h *restHandlers) decodeSigned(w http.ResponseWriter, r *http.Request, v any) (types.Address, bool) {
	caller, body, err := h.auth.authenticate(r)
	if err != nil {
		h.writeError(w, r, err)
		return caller, false
	}
	if err := json.Unmarshal(body, v); err != nil {
		h.writeErrorStatus(w, r, http.StatusBadRequest, fmt.Errorf("decoding request body: %w", err))
		return caller, false
	}
	return caller, true
}

func (h *restHandlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set(headerContentType, applicationJson)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WarnContext(r.Context(), "failed to write JSON response", logger.Error(err))
	}
}

func (h *restHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeErrorStatus(w, r, httpStatus(err), err)
}

func (h *restHandlers) writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	rsp := errorResponse{Err: err.Error()}
	if e, ok := types.CodeOf(err); ok {
		rsp.Code, rsp.Name = e.Code, e.Name
	}
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), fmt.Sprintf("%s %s", r.Method, r.URL.Path), logger.Error(err))
	}
	h.writeJSON(w, r, status, rsp)
}

func hashVar(r *http.Request) (types.Hash, error) {
	var h types.Hash
	if err := h.UnmarshalText([]byte(mux.Vars(r)["hash"])); err != nil {
		return h, fmt.Errorf("%w: invalid operation hash: %v", types.ErrInvalidOpData, err)
	}
	return h, nil
}

func pageParams(r *http.Request) (from uint64, limit int, err error) {
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		if from, err = strconv.ParseUint(s, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("invalid 'from' parameter: %w", err)
		}
	}
	limit = maxPageSize
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, fmt.Errorf("invalid 'limit' parameter: %w", err)
		}
		if limit <= 0 || limit > maxPageSize {
			return 0, 0, fmt.Errorf("'limit' must be in range 1..%d", maxPageSize)
		}
	}
	return from, limit, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
