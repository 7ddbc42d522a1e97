package bot

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/sensorbot/internal/errors"
	"codeberg.org/mutker/sensorbot/internal/logger"
	"codeberg.org/mutker/sensorbot/internal/store"
	"codeberg.org/mutker/sensorbot/internal/timerange"
)

const (
	refusalText        = "I'm sorry, Dave. I'm afraid I can't do that."
	unknownCommandText = "Unknown command."
	noDataText         = "No data yet."
	noRangeDataText    = "No data for this time range."
	genericErrorText   = "Something went wrong while handling that, sorry."
	menuText           = "Choose time range to plot:"
	helpText           = "/show - Show last read data.\n" +
		"/plot - Plot recorded data.\n" +
		"/help - Show this help."
)

// command is the tagged set of recognized operator commands. Unknown
// input is an explicit variant, not an error path.
type command int

const (
	cmdUnknown command = iota
	cmdStart
	cmdHelp
	cmdShow
	cmdPlot
)

// parseCommand maps message text to a command. Matching is
// case-insensitive and tolerates trailing whitespace.
func parseCommand(text string) command {
	switch strings.TrimRight(strings.ToLower(text), " \t\r\n") {
	case "/start":
		return cmdStart
	case "/help":
		return cmdHelp
	case "/show":
		return cmdShow
	case "/plot":
		return cmdPlot
	default:
		return cmdUnknown
	}
}

// plotMenu is the fixed range menu presented by /plot. Button data is
// the exact token resolved by the timerange package.
var plotMenu = [][]Button{
	{
		{Label: "1h", Data: "1h"},
		{Label: "3h", Data: "3h"},
		{Label: "6h", Data: "6h"},
		{Label: "12h", Data: "12h"},
		{Label: "24h", Data: "24h"},
		{Label: "48h", Data: "48h"},
	},
	{
		{Label: "today", Data: "today"},
		{Label: "yesterday", Data: "yesterday"},
		{Label: "last 3 days", Data: "last 3d"},
	},
	{
		{Label: "this week", Data: "this week"},
		{Label: "last week", Data: "last week"},
		{Label: "last 7 days", Data: "last 7d"},
	},
	{
		{Label: "this month", Data: "this month"},
		{Label: "last month", Data: "last month"},
		{Label: "last 31 days", Data: "last 31d"},
	},
	{
		{Label: "this year", Data: "this year"},
		{Label: "last year", Data: "last year"},
		{Label: "last 365 days", Data: "last 365d"},
	},
	{
		{Label: "all", Data: "all"},
	},
}

// Records is the time-range query side of the record store.
type Records interface {
	Query(start, end *time.Time) (store.RecordSet, error)
}

// LastReader provides the latest published sensor reading.
type LastReader interface {
	Last() *store.Sample
}

// Plotter renders a sample series to a transient image artifact.
type Plotter interface {
	Render(samples []store.Sample) (string, error)
}

// Dispatcher handles inbound operator messages and menu callbacks:
// authorization against the operator allow-list, command parsing and
// the query/plot/reply flow. Failures inside a handler are contained
// at the handler boundary; the dispatch loop always survives.
type Dispatcher struct {
	gateway Gateway
	records Records
	last    LastReader
	plotter Plotter
	owners  map[int64]struct{}

	now func() time.Time
}

func New(gateway Gateway, records Records, last LastReader, plotter Plotter, ownerIDs []int64) *Dispatcher {
	owners := make(map[int64]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}

	return &Dispatcher{
		gateway: gateway,
		records: records,
		last:    last,
		plotter: plotter,
		owners:  owners,
		now:     time.Now,
	}
}

func (d *Dispatcher) authorized(senderID int64) bool {
	_, ok := d.owners[senderID]
	return ok
}

// HandleMessage processes one inbound text command.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg Message) {
	defer d.contain(ctx, msg.ChatID)

	if !d.authorized(msg.SenderID) {
		logger.Warn().Int64("sender_id", msg.SenderID).Str("sender", msg.SenderName).
			Str("text", msg.Text).Msg("message from unknown user")
		d.reply(ctx, msg.ChatID, refusalText)
		return
	}

	logger.Info().Int64("sender_id", msg.SenderID).Str("text", msg.Text).Msg("received message")

	switch parseCommand(msg.Text) {
	case cmdStart, cmdHelp:
		d.reply(ctx, msg.ChatID, helpText)
	case cmdShow:
		d.commandShow(ctx, msg.ChatID)
	case cmdPlot:
		if err := d.gateway.SendMenu(ctx, msg.ChatID, menuText, plotMenu); err != nil {
			logger.Error().Err(err).Msg("could not send plot menu")
		}
	case cmdUnknown:
		logger.Warn().Str("text", msg.Text).Msg("unknown command")
		d.reply(ctx, msg.ChatID, unknownCommandText)
	}
}

func (d *Dispatcher) commandShow(ctx context.Context, chatID int64) {
	reading := d.last.Last()
	if reading == nil {
		d.reply(ctx, chatID, noDataText)
		return
	}

	d.reply(ctx, chatID, fmt.Sprintf("%s\nTemperature: %.2f °C\nHumidity: %.2f %%",
		reading.Timestamp.Format(store.TimeLayout), reading.Temperature, reading.Humidity))
}

// HandleCallback processes one range-selection callback. The callback
// is acknowledged to the gateway first, unconditionally; some chat
// clients misbehave otherwise.
func (d *Dispatcher) HandleCallback(ctx context.Context, cb Callback) {
	if err := d.gateway.AckCallback(ctx, cb.ID); err != nil {
		logger.Warn().Err(err).Msg("could not acknowledge callback")
	}

	defer d.contain(ctx, cb.ChatID)

	if !d.authorized(cb.SenderID) {
		logger.Warn().Int64("sender_id", cb.SenderID).Str("data", cb.Data).
			Msg("callback from unknown user")
		d.reply(ctx, cb.ChatID, refusalText)
		return
	}

	r, err := timerange.Resolve(cb.Data, d.now())
	if err != nil {
		logger.Warn().Str("token", cb.Data).Msg("unknown plot range")
		d.reply(ctx, cb.ChatID, "Unknown plot range: "+cb.Data)
		return
	}

	d.plot(ctx, cb.ChatID, r)
}

func (d *Dispatcher) plot(ctx context.Context, chatID int64, r timerange.Range) {
	announce := fmt.Sprintf("Plotting from %s to %s.", formatBound(r.Start, "start"), formatBound(r.End, "now"))
	logger.Info().Msg(announce)
	d.reply(ctx, chatID, announce)

	records, err := d.records.Query(r.Start, r.End)
	if err != nil {
		logger.Error().Err(err).Msg("record query failed")
		d.reply(ctx, chatID, genericErrorText)
		return
	}
	if records.Empty() {
		d.reply(ctx, chatID, noRangeDataText)
		return
	}

	imagePath, err := d.plotter.Render(records.Samples)
	if err != nil {
		logger.Error().Err(err).Msg("chart rendering failed")
		d.reply(ctx, chatID, genericErrorText)
		return
	}

	if err := d.gateway.SendPhoto(ctx, chatID, imagePath, formatCaption(records)); err != nil {
		logger.Error().Err(err).Msg("could not send plot")
	}

	if err := os.Remove(imagePath); err != nil {
		logger.Warn().Err(err).Str("path", imagePath).Msg("could not remove plot artifact")
	}
}

// formatCaption summarizes the covered span and the four extrema.
func formatCaption(records store.RecordSet) string {
	first := records.Samples[0].Timestamp
	last := records.Samples[len(records.Samples)-1].Timestamp
	stats := records.Stats

	return fmt.Sprintf(
		"From %s to %s\n"+
			"Temperature:\n"+
			"  Minimum: %.2f °C at %s\n"+
			"  Maximum: %.2f °C at %s\n"+
			"Humidity:\n"+
			"  Minimum: %.2f %% at %s\n"+
			"  Maximum: %.2f %% at %s",
		first.Format(store.TimeLayout), last.Format(store.TimeLayout),
		stats.Temperature.Min.Value, stats.Temperature.Min.At.Format(store.TimeLayout),
		stats.Temperature.Max.Value, stats.Temperature.Max.At.Format(store.TimeLayout),
		stats.Humidity.Min.Value, stats.Humidity.Min.At.Format(store.TimeLayout),
		stats.Humidity.Max.Value, stats.Humidity.Max.At.Format(store.TimeLayout))
}

func formatBound(t *time.Time, unbounded string) string {
	if t == nil {
		return unbounded
	}

	return t.Format(store.TimeLayout)
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if err := d.gateway.SendText(ctx, chatID, text); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg("could not send reply")
			return
		}
		logger.Error().Err(err).Msg("could not send reply")
	}
}

// contain is the handler boundary: a panic while handling an event is
// logged and answered with a generic failure, never propagated into
// the receive loop.
func (d *Dispatcher) contain(ctx context.Context, chatID int64) {
	if r := recover(); r != nil {
		logger.Error().Interface("panic", r).Msg("panic while handling event")
		d.reply(ctx, chatID, genericErrorText)
	}
}
