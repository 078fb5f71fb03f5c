package main

import (
	"errors"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stgrky/d2d-sales-calculator/internal/archive"
	"github.com/stgrky/d2d-sales-calculator/internal/metrics"
	"github.com/stgrky/d2d-sales-calculator/internal/pricing"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/session"
)

type sessionResponse struct {
	session.Snapshot
	MissingFields []string `json:"missingFields,omitempty"`
}

func newSessionResponse(s *session.Session) sessionResponse {
	snap := s.Snapshot()
	return sessionResponse{Snapshot: snap, MissingFields: snap.Customer.Missing()}
}

type calculateResponse struct {
	State     session.State     `json:"state"`
	Breakdown pricing.Breakdown `json:"breakdown"`
	Total     quote.Total       `json:"total"`
}

// session resolves the {id} URL parameter. It writes the error response and
// returns nil when the session does not exist.
func (s *server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err, "failed to load session")
		return nil
	}
	return sess
}

func (s *server) refuse(w http.ResponseWriter, action string, err error, fallback string) {
	if errors.Is(err, session.ErrStale) {
		s.metrics.Refused(action)
	}
	writeFailure(w, err, fallback)
}

func (s *server) handleSessionOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartnerCode string `json:"partnerCode"`
	}
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	sess, err := s.sessions.Open(r.Context(), req.PartnerCode)
	if err != nil {
		writeFailure(w, err, "failed to open session")
		return
	}
	log.Printf("session opened id=%s partner=%q", sess.ID(), req.PartnerCode)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (s *server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Close(chi.URLParam(r, "id")) {
		writeFailure(w, session.ErrNotFound, "failed to close session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleConfigurationReplace(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var cfg quote.Configuration
	if !decodeJSON(w, r, &cfg) {
		return
	}
	sess.ReplaceConfiguration(cfg)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// configurationPatch carries the form fields a client changed. Numeric fields
// arrive as entered and are coerced, so invalid input becomes zero.
type configurationPatch struct {
	Model              *string `json:"model"`
	UnitPad            *bool   `json:"unitPad"`
	MobilityAssistance *bool   `json:"mobility"`
	Tank               *string `json:"tank"`
	TankPad            *bool   `json:"tankPad"`
	City               *string `json:"city"`
	Sensor             *string `json:"sensor"`
	Filter             *string `json:"filter"`
	FilterQuantity     *string `json:"filterQty"`
	Pump               *string `json:"pump"`
	ConnectionType     *string `json:"connection"`
	PanelUpgrade       *string `json:"panelUpgrade"`
	Warranty           *string `json:"warranty"`
	Demolition         *struct {
		Enabled  bool   `json:"enabled"`
		Distance string `json:"distance"`
	} `json:"demolition"`
}

func (p configurationPatch) apply(sess *session.Session) {
	setString := func(v *string, set func(string)) {
		if v != nil {
			set(*v)
		}
	}
	setBool := func(v *bool, set func(bool)) {
		if v != nil {
			set(*v)
		}
	}

	setString(p.Model, sess.SetModel)
	setBool(p.UnitPad, sess.SetUnitPad)
	setBool(p.MobilityAssistance, sess.SetMobilityAssistance)
	setString(p.Tank, sess.SetTank)
	setBool(p.TankPad, sess.SetTankPad)
	setString(p.City, sess.SetCity)
	setString(p.Sensor, sess.SetSensor)
	setString(p.Filter, sess.SetFilter)
	if p.FilterQuantity != nil {
		sess.SetFilterQuantity(quote.ParseQuantity(*p.FilterQuantity))
	}
	setString(p.Pump, sess.SetPump)
	setString(p.ConnectionType, sess.SetConnectionType)
	setString(p.PanelUpgrade, sess.SetPanelUpgrade)
	setString(p.Warranty, sess.SetWarranty)
	if p.Demolition != nil {
		sess.SetDemolition(p.Demolition.Enabled, quote.ParseDistance(p.Demolition.Distance))
	}
}

func (s *server) handleConfigurationPatch(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var patch configurationPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	patch.apply(sess)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

type sectionRequest struct {
	Type     string `json:"type"`
	Distance string `json:"distance"`
}

func (req sectionRequest) section() quote.Section {
	return quote.Section{Type: req.Type, DistanceFeet: quote.ParseDistance(req.Distance)}
}

const (
	kindTrenching   = "trenching"
	kindAboveGround = "above-ground"
)

func sectionKind(w http.ResponseWriter, r *http.Request) (string, bool) {
	kind := chi.URLParam(r, "kind")
	if kind != kindTrenching && kind != kindAboveGround {
		writeError(w, http.StatusNotFound, "unknown section kind")
		return "", false
	}
	return kind, true
}

func rowIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		writeError(w, http.StatusBadRequest, "invalid row index")
		return 0, false
	}
	return i, true
}

func (s *server) handleSectionAdd(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	kind, ok := sectionKind(w, r)
	if !ok {
		return
	}
	var req sectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if kind == kindTrenching {
		sess.AddTrenchingSection(req.section())
	} else {
		sess.AddAboveGroundSection(req.section())
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleSectionUpdate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	kind, ok := sectionKind(w, r)
	if !ok {
		return
	}
	i, ok := rowIndex(w, r)
	if !ok {
		return
	}
	var req sectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	if kind == kindTrenching {
		err = sess.UpdateTrenchingSection(i, req.section())
	} else {
		err = sess.UpdateAboveGroundSection(i, req.section())
	}
	if err != nil {
		writeFailure(w, err, "failed to update section")
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleSectionRemove(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	kind, ok := sectionKind(w, r)
	if !ok {
		return
	}
	i, ok := rowIndex(w, r)
	if !ok {
		return
	}

	var err error
	if kind == kindTrenching {
		err = sess.RemoveTrenchingSection(i)
	} else {
		err = sess.RemoveAboveGroundSection(i)
	}
	if err != nil {
		writeFailure(w, err, "failed to remove section")
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

type adjustmentRequest struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
	Amount  string `json:"amount"`
	Notes   string `json:"notes"`
}

func (req adjustmentRequest) adjustment() quote.CustomAdjustment {
	return quote.CustomAdjustment{
		Enabled: req.Enabled,
		Label:   req.Label,
		Amount:  quote.ParseAmount(req.Amount),
		Notes:   req.Notes,
	}
}

func (s *server) handleAdjustmentAdd(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req adjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess.AddCustomAdjustment(req.adjustment())
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleAdjustmentUpdate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	i, ok := rowIndex(w, r)
	if !ok {
		return
	}
	var req adjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.UpdateCustomAdjustment(i, req.adjustment()); err != nil {
		writeFailure(w, err, "failed to update adjustment")
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleAdjustmentRemove(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	i, ok := rowIndex(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveCustomAdjustment(i); err != nil {
		writeFailure(w, err, "failed to remove adjustment")
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleCustomerUpdate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var c quote.Customer
	if !decodeJSON(w, r, &c) {
		return
	}
	sess.SetCustomer(c)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleDetailsUpdate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		Notes  *string `json:"notes"`
		Status *string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status != nil {
		st, err := quote.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := sess.SetStatus(st); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Notes != nil {
		sess.SetNotes(*req.Notes)
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	b, total := sess.Calculate()
	s.metrics.Calculations.Inc()
	writeJSON(w, http.StatusOK, calculateResponse{State: session.Fresh, Breakdown: b, Total: total})
}

func (s *server) handleDiscountToggle(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sess.SetDiscountActive(req.Active)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	existing := sess.Snapshot().QuoteID

	saved, err := sess.Save(r.Context(), s.store)
	if err != nil {
		if storeFailure(err) {
			s.metrics.Saved(metrics.SaveFailed)
		}
		s.refuse(w, "save", err, "failed to save quote")
		return
	}

	status := http.StatusOK
	result := metrics.SaveUpdated
	if existing == "" {
		status = http.StatusCreated
		result = metrics.SaveCreated
	}
	s.metrics.Saved(result)
	log.Printf("quote saved id=%s number=%s result=%s final=%s", saved.ID, saved.QuoteNumber, result, saved.FinalTotal.StringFixed(2))
	writeJSON(w, status, saved)
}

// storeFailure reports whether a save error came from the store rather than
// from the session refusing to save.
func storeFailure(err error) bool {
	var missing *quote.MissingFieldsError
	return !errors.Is(err, session.ErrStale) && !errors.Is(err, session.ErrSaveInFlight) && !errors.As(err, &missing)
}

func (s *server) handleDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	doc, err := sess.ExportDocument(s.docs)
	if err != nil {
		s.refuse(w, "export", err, "failed to render quote document")
		return
	}
	s.metrics.Exports.Inc()

	key := archive.Key(sess.Snapshot().QuoteNumber, sess.ID(), doc.Filename)
	if err := s.archive.Put(r.Context(), key, doc.Data); err != nil {
		log.Printf("quote document archive failed key=%s err=%v", key, err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		log.Printf("write quote document failed session=%s err=%v", sess.ID(), err)
	}
}

func (s *server) handleSessionFinancing(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	q := r.URL.Query()

	est, err := sess.Financing(quote.ParseAmount(q.Get("downPayment")), q.Get("plan"), quote.ParseQuantity(q.Get("term")))
	if err != nil {
		s.refuse(w, "financing", err, "failed to estimate financing")
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *server) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	q, err := s.store.GetQuote(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		writeFailure(w, err, "failed to load quote")
		return
	}
	if err := sess.Load(q); err != nil {
		writeFailure(w, err, "failed to load quote")
		return
	}
	log.Printf("quote loaded session=%s id=%s number=%s", sess.ID(), q.ID, q.QuoteNumber)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}
