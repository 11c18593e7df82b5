package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/babbittintl/quotecore/internal/partnumber"
	"github.com/babbittintl/quotecore/internal/pricing"
	"github.com/babbittintl/quotecore/internal/quotes"
	"github.com/babbittintl/quotecore/internal/spares"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type partView struct {
	Model             string   `json:"model"`
	Voltage           string   `json:"voltage"`
	Material          string   `json:"material"`
	LengthIn          float64  `json:"length_in"`
	Insulator         string   `json:"insulator,omitempty"`
	InsulatorLengthIn float64  `json:"insulator_length_in,omitempty"`
	Connection        string   `json:"connection,omitempty"`
	Options           []string `json:"options,omitempty"`
	BendAngleDeg      *int     `json:"bend_angle_deg,omitempty"`
	DiameterOD        string   `json:"diameter_od,omitempty"`
}

func newPartView(p partnumber.Part) *partView {
	v := &partView{
		Model:             p.Model,
		Voltage:           p.Voltage,
		Material:          p.MaterialCode,
		LengthIn:          p.LengthIn,
		Insulator:         p.InsulatorCode,
		InsulatorLengthIn: p.InsulatorLengthIn,
		Options:           p.Options,
		BendAngleDeg:      p.BendAngleDeg,
		DiameterOD:        p.DiameterOD,
	}
	if p.Connection != nil {
		v.Connection = p.Connection.Display()
	}
	return v
}

type optionChargeView struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type surchargeView struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type pricingView struct {
	BasePrice       string             `json:"base_price"`
	MaterialAdder   string             `json:"material_adder"`
	LengthAdder     string             `json:"length_adder"`
	InsulatorAdder  string             `json:"insulator_adder"`
	ConnectionAdder string             `json:"connection_adder"`
	Options         []optionChargeView `json:"options,omitempty"`
	Surcharges      []surchargeView    `json:"surcharges,omitempty"`
	Total           string             `json:"total"`
	Breakdown       []string           `json:"breakdown"`
	Notes           []string           `json:"notes,omitempty"`
}

func newPricingView(res pricing.Result) *pricingView {
	v := &pricingView{
		BasePrice:       amount(res.BasePrice),
		MaterialAdder:   amount(res.MaterialAdder),
		LengthAdder:     amount(res.LengthAdder),
		InsulatorAdder:  amount(res.InsulatorAdder),
		ConnectionAdder: amount(res.ConnectionAdder),
		Total:           amount(res.Total),
		Breakdown:       res.Breakdown,
		Notes:           res.Notes,
	}
	for _, opt := range res.Options {
		v.Options = append(v.Options, optionChargeView{Code: opt.Code, Name: opt.Name, Amount: amount(opt.Amount)})
	}
	for _, sur := range res.Surcharges {
		v.Surcharges = append(v.Surcharges, surchargeView{Name: sur.Name, Amount: amount(sur.Amount)})
	}
	return v
}

type priceQuoteRequest struct {
	PartNumber string `json:"part_number"`
	Quantity   int    `json:"quantity"`
}

type priceQuoteResponse struct {
	PartNumber string       `json:"part_number"`
	Part       *partView    `json:"part,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	Errors     []string     `json:"errors,omitempty"`
	Pricing    *pricingView `json:"pricing,omitempty"`
	Quantity   int          `json:"quantity"`
	UnitPrice  string       `json:"unit_price,omitempty"`
	Total      string       `json:"total,omitempty"`
}

// handlePriceQuote runs the full parse, validate, price pipeline for one part
// number. Unparseable or incompatible configurations come back as 422 with
// the problems inline; a missing catalog row is a 500 (data gap, not client
// error).
func (s *server) handlePriceQuote(w http.ResponseWriter, r *http.Request) {
	var req priceQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.PartNumber) == "" {
		respondError(w, http.StatusBadRequest, "part_number is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	part, err := partnumber.Parse(req.PartNumber, s.ref)
	var fatal *partnumber.FatalError
	if errors.As(err, &fatal) {
		respondJSON(w, http.StatusUnprocessableEntity, priceQuoteResponse{
			PartNumber: req.PartNumber,
			Errors:     []string{fatal.Reason},
			Quantity:   req.Quantity,
		})
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "parse failed")
		return
	}

	partnumber.Validate(&part, s.ref)

	result, err := pricing.Calculate(part, s.ref)
	var compat *pricing.CompatibilityError
	if errors.As(err, &compat) {
		respondJSON(w, http.StatusUnprocessableEntity, priceQuoteResponse{
			PartNumber: part.Raw,
			Part:       newPartView(part),
			Warnings:   part.Warnings,
			Errors:     compat.Problems,
			Quantity:   req.Quantity,
		})
		return
	}
	if err != nil {
		var dataErr *pricing.DataError
		if errors.As(err, &dataErr) {
			respondError(w, http.StatusInternalServerError, dataErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "pricing failed")
		return
	}

	unit := result.Total
	respondJSON(w, http.StatusOK, priceQuoteResponse{
		PartNumber: part.Raw,
		Part:       newPartView(part),
		Warnings:   part.Warnings,
		Pricing:    newPricingView(result),
		Quantity:   req.Quantity,
		UnitPrice:  amount(unit),
		Total:      amount(unit.Mul(decimal.NewFromInt(int64(req.Quantity)))),
	})
}

type spareResolveRequest struct {
	Code string `json:"code"`
}

type sparePartView struct {
	PartNumber       string   `json:"part_number"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Category         string   `json:"category"`
	CompatibleModels []string `json:"compatible_models,omitempty"`
}

type spareResolveResponse struct {
	Code        string         `json:"code"`
	Category    string         `json:"category,omitempty"`
	Model       string         `json:"model,omitempty"`
	Voltage     string         `json:"voltage,omitempty"`
	Material    string         `json:"material,omitempty"`
	LengthIn    float64        `json:"length_in,omitempty"`
	Specs       string         `json:"specs,omitempty"`
	Canonical   string         `json:"canonical,omitempty"`
	Part        *sparePartView `json:"part,omitempty"`
	Price       string         `json:"price,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
	Resolved    bool           `json:"resolved"`
}

func (s *server) handleSpareResolve(w http.ResponseWriter, r *http.Request) {
	var req spareResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	res := spares.Resolve(req.Code, s.ref)
	view := spareResolveResponse{
		Code:        res.Raw,
		Category:    res.Category,
		Model:       res.Model,
		Voltage:     res.Voltage,
		Material:    res.MaterialCode,
		LengthIn:    res.LengthIn,
		Specs:       res.Specs,
		Canonical:   res.Canonical,
		Suggestions: res.Suggestions,
		Warnings:    res.Warnings,
		Errors:      res.Errors,
		Resolved:    res.Resolved,
	}
	if res.Part != nil {
		view.Part = &sparePartView{
			PartNumber:       res.Part.PartNumber,
			Name:             res.Part.Name,
			Description:      res.Part.Description,
			Category:         res.Part.Category,
			CompatibleModels: res.Part.CompatibleModels,
		}
		view.Price = amount(res.Price)
	}

	status := http.StatusOK
	if !res.Resolved {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, view)
}

type modelSummaryView struct {
	Code           string   `json:"code"`
	Description    string   `json:"description"`
	BasePrice      string   `json:"base_price"`
	BaseLengthIn   float64  `json:"base_length_in"`
	DefaultVoltage string   `json:"default_voltage"`
	Voltages       []string `json:"voltages"`
}

func (s *server) handleModelsList(w http.ResponseWriter, r *http.Request) {
	views := make([]modelSummaryView, 0)
	for _, code := range s.ref.ModelCodes() {
		model, ok := s.ref.Model(code)
		if !ok {
			continue
		}
		views = append(views, modelSummaryView{
			Code:           model.Code,
			Description:    model.Description,
			BasePrice:      amount(model.BasePrice),
			BaseLengthIn:   model.BaseLengthIn,
			DefaultVoltage: model.DefaultVoltage,
			Voltages:       s.ref.VoltagesFor(model.Code),
		})
	}
	respondJSON(w, http.StatusOK, views)
}

type modelDetailView struct {
	Code              string   `json:"code"`
	Description       string   `json:"description"`
	BasePrice         string   `json:"base_price"`
	BaseLengthIn      float64  `json:"base_length_in"`
	DefaultVoltage    string   `json:"default_voltage"`
	DefaultMaterial   string   `json:"default_material"`
	DefaultInsulator  string   `json:"default_insulator"`
	DefaultConnection string   `json:"default_connection"`
	MaxTempF          int      `json:"max_temp_f"`
	MaxPressurePSI    int      `json:"max_pressure_psi"`
	Voltages          []string `json:"voltages"`
	Notes             string   `json:"notes,omitempty"`
}

func (s *server) handleModelDetail(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "*")))
	model, ok := s.ref.Model(code)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown model %q", code))
		return
	}
	respondJSON(w, http.StatusOK, modelDetailView{
		Code:              model.Code,
		Description:       model.Description,
		BasePrice:         amount(model.BasePrice),
		BaseLengthIn:      model.BaseLengthIn,
		DefaultVoltage:    model.DefaultVoltage,
		DefaultMaterial:   model.DefaultMaterial,
		DefaultInsulator:  model.DefaultInsulator,
		DefaultConnection: model.DefaultConnection.Display(),
		MaxTempF:          model.MaxTempF,
		MaxPressurePSI:    model.MaxPressurePSI,
		Voltages:          s.ref.VoltagesFor(model.Code),
		Notes:             model.Notes,
	})
}

type quoteSummaryView struct {
	QuoteNumber  string `json:"quote_number"`
	CustomerName string `json:"customer_name"`
	UserInitials string `json:"user_initials"`
	TotalPrice   string `json:"total_price"`
	CreatedAt    string `json:"created_at"`
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	summaries, err := s.quotes.List(query)
	if err != nil {
		log.Printf("list quotes: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}

	views := make([]quoteSummaryView, 0, len(summaries))
	for _, sum := range summaries {
		views = append(views, quoteSummaryView{
			QuoteNumber:  sum.QuoteNumber,
			CustomerName: sum.CustomerName,
			UserInitials: sum.UserInitials,
			TotalPrice:   amount(sum.TotalPrice),
			CreatedAt:    sum.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

type quoteItemView struct {
	PartNumber  string   `json:"part_number"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	UnitPrice   string   `json:"unit_price"`
	LineTotal   string   `json:"line_total"`
	Breakdown   []string `json:"breakdown,omitempty"`
}

type quoteView struct {
	QuoteNumber   string          `json:"quote_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	UserInitials  string          `json:"user_initials"`
	TotalPrice    string          `json:"total_price"`
	CreatedAt     string          `json:"created_at"`
	Items         []quoteItemView `json:"items"`
}

func newQuoteView(q quotes.Quote) quoteView {
	view := quoteView{
		QuoteNumber:   q.QuoteNumber,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		UserInitials:  q.UserInitials,
		TotalPrice:    amount(q.TotalPrice),
		CreatedAt:     q.CreatedAt,
		Items:         make([]quoteItemView, 0, len(q.Items)),
	}
	for _, item := range q.Items {
		view.Items = append(view.Items, quoteItemView{
			PartNumber:  item.PartNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   amount(item.UnitPrice),
			LineTotal:   amount(item.LineTotal),
			Breakdown:   item.Breakdown,
		})
	}
	return view
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	q, ok, err := s.quotes.Get(number)
	if err != nil {
		log.Printf("get quote %s: %v", number, err)
		respondError(w, http.StatusInternalServerError, "failed to load quote")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("quote %q not found", number))
		return
	}
	respondJSON(w, http.StatusOK, newQuoteView(q))
}

type createQuoteItem struct {
	PartNumber string `json:"part_number"`
	Quantity   int    `json:"quantity"`
	Spare      bool   `json:"spare"`
}

type createQuoteRequest struct {
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	UserInitials  string            `json:"user_initials"`
	Items         []createQuoteItem `json:"items"`
}

// handleQuoteCreate prices every requested item through the engine, assigns
// the next quote number for the user's initials, and saves the quote. Items
// marked spare go through the spare resolver instead of the full parser.
func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.UserInitials = strings.ToUpper(strings.TrimSpace(req.UserInitials))
	if req.UserInitials == "" {
		respondError(w, http.StatusBadRequest, "user_initials is required")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	items := make([]quotes.Item, 0, len(req.Items))
	total := decimal.Zero
	for i, it := range req.Items {
		if strings.TrimSpace(it.PartNumber) == "" {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("item %d: part_number is required", i+1))
			return
		}
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		if it.Quantity < 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("item %d: quantity must be positive", i+1))
			return
		}

		var item quotes.Item
		if it.Spare {
			res := spares.Resolve(it.PartNumber, s.ref)
			if !res.Resolved {
				respondError(w, http.StatusUnprocessableEntity,
					fmt.Sprintf("item %d (%s): %s", i+1, it.PartNumber, strings.Join(res.Errors, "; ")))
				return
			}
			item = quotes.Item{
				PartNumber:  res.Raw,
				Description: res.Part.Name,
				Quantity:    it.Quantity,
				UnitPrice:   res.Price,
			}
		} else {
			priced, problems, err := s.priceQuoteItem(it.PartNumber)
			if problems != nil {
				respondError(w, http.StatusUnprocessableEntity,
					fmt.Sprintf("item %d (%s): %s", i+1, it.PartNumber, strings.Join(problems, "; ")))
				return
			}
			if err != nil {
				log.Printf("price item %s: %v", it.PartNumber, err)
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			priced.Quantity = it.Quantity
			item = priced
		}

		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, item)
	}

	number, err := s.quotes.NextNumber(req.UserInitials, time.Now())
	if err != nil {
		log.Printf("next quote number: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to assign quote number")
		return
	}

	q := &quotes.Quote{
		QuoteNumber:   number,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		UserInitials:  req.UserInitials,
		TotalPrice:    total,
		Items:         items,
	}
	if err := s.quotes.Save(q); err != nil {
		log.Printf("save quote %s: %v", number, err)
		respondError(w, http.StatusInternalServerError, "failed to save quote")
		return
	}

	saved, ok, err := s.quotes.Get(number)
	if err != nil || !ok {
		log.Printf("reload quote %s: ok=%v err=%v", number, ok, err)
		respondError(w, http.StatusInternalServerError, "failed to load saved quote")
		return
	}
	respondJSON(w, http.StatusCreated, newQuoteView(saved))
}

// priceQuoteItem runs one full part number through the engine. Client-side
// problems (bad part number, incompatible options) come back in problems;
// anything else is an internal error.
func (s *server) priceQuoteItem(raw string) (quotes.Item, []string, error) {
	part, err := partnumber.Parse(raw, s.ref)
	var fatal *partnumber.FatalError
	if errors.As(err, &fatal) {
		return quotes.Item{}, []string{fatal.Reason}, nil
	}
	if err != nil {
		return quotes.Item{}, nil, err
	}

	partnumber.Validate(&part, s.ref)

	result, err := pricing.Calculate(part, s.ref)
	var compat *pricing.CompatibilityError
	if errors.As(err, &compat) {
		return quotes.Item{}, compat.Problems, nil
	}
	if err != nil {
		return quotes.Item{}, nil, err
	}

	return quotes.Item{
		PartNumber:  part.Raw,
		Description: part.Model + " - " + part.Voltage,
		UnitPrice:   result.Total,
		Breakdown:   result.Breakdown,
	}, nil, nil
}
