package services

import (
	"html/template"

	"trialdesk/domain/session"
	"trialdesk/domain/trial"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Info box copy shown before a form has been submitted
const (
	RiskInfo   = "Fill out trial details in the sidebar, then click **Submit** to see results."
	FinderInfo = "Enter your description in the sidebar, then click **Submit** to see matching trials."
)

// DefaultRationale is shown when a record carries no rationale
const DefaultRationale = "Placeholder rationale text."

// Risk bar colors
const (
	RiskBarColor       = "#d9534f"
	RiskBarOpacity     = 0.85
	BaselineBarOpacity = 0.25
)

// Markdown renders trusted copy written in markdown. Raw HTML in the input is
// escaped.
func Markdown(src string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.HrefTargetBlank,
	})
	return template.HTML(markdown.ToHTML([]byte(src), p, renderer))
}

// TaskView is the loading indicator state of a flow
type TaskView struct {
	ID      string
	Pending bool
	Failed  bool
	Stage   string
	Error   string
}

func newTaskView(t session.Task) TaskView {
	return TaskView{
		ID:      t.ID.String(),
		Pending: t.IsPending(),
		Failed:  t.Status == session.TaskFailure,
		Stage:   t.Stage,
		Error:   t.Error,
	}
}

// BarLayer is one rectangle of the risk bar chart, scaled to [0,100]
type BarLayer struct {
	Width   int
	Opacity float64
}

// BarChart is the horizontal risk bar. The label is centered in the top layer.
type BarChart struct {
	Color  string
	Layers []BarLayer
	Label  string
	LabelX float64
}

// NewRiskChart builds the single bar for a fresh estimate
func NewRiskChart(risk int) BarChart {
	risk = clampPercent(risk)
	return BarChart{
		Color:  RiskBarColor,
		Layers: []BarLayer{{Width: risk, Opacity: RiskBarOpacity}},
		Label:  percentLabel(risk),
		LabelX: labelX(risk),
	}
}

// NewOverlayChart draws the baseline faintly beneath the improved risk
func NewOverlayChart(baseline, risk int) BarChart {
	baseline = clampPercent(baseline)
	risk = clampPercent(risk)
	return BarChart{
		Color: RiskBarColor,
		Layers: []BarLayer{
			{Width: baseline, Opacity: BaselineBarOpacity},
			{Width: risk, Opacity: RiskBarOpacity},
		},
		Label:  percentLabel(risk),
		LabelX: labelX(risk),
	}
}

// RiskView is everything the risk page and its panel need
type RiskView struct {
	Info        string
	Attributes  trial.TrialAttributes
	Submitted   bool
	HasRisk     bool
	Risk        int
	Applied     bool
	Baseline    int
	Chart       BarChart
	Suggestions []string
	Task        TaskView
}

// NewRiskView derives the risk page state
func NewRiskView(state session.RiskState) RiskView {
	view := RiskView{
		Info:        RiskInfo,
		Attributes:  state.Attributes,
		Submitted:   state.Submitted,
		HasRisk:     state.Risk != nil,
		Risk:        state.RiskValue(),
		Applied:     state.Applied,
		Baseline:    state.BaselineRisk,
		Suggestions: state.Suggestions,
		Task:        newTaskView(state.Task),
	}

	if view.HasRisk {
		if view.Applied {
			view.Chart = NewOverlayChart(view.Baseline, view.Risk)
		} else {
			view.Chart = NewRiskChart(view.Risk)
		}
	}
	return view
}

// CardView is one rendered trial record
type CardView struct {
	NCTID     string
	Title     string
	Summary   string
	Link      string
	Chips     []string
	HasScore  bool
	Progress  int
	Rationale string
}

// NewCardView derives the chips and progress value of a record
func NewCardView(record trial.TrialRecord) CardView {
	card := CardView{
		NCTID:     record.NCTID,
		Title:     record.Title,
		Summary:   record.Summary,
		Link:      record.Link,
		Rationale: record.Rationale,
	}
	if card.Link == "" && record.NCTID != "" {
		card.Link = trial.RegistryLink(record.NCTID)
	}
	if card.Rationale == "" {
		card.Rationale = DefaultRationale
	}

	if record.Phase != "" {
		card.Chips = append(card.Chips, "Phase "+record.Phase)
	}
	if record.Randomized != nil {
		if *record.Randomized {
			card.Chips = append(card.Chips, "Randomized")
		} else {
			card.Chips = append(card.Chips, "Single-arm")
		}
	}
	if record.Sites != "" {
		card.Chips = append(card.Chips, record.Sites)
	}

	if record.Score != nil {
		card.HasScore = true
		card.Progress = trial.ProgressValue(*record.Score)
	}
	return card
}

// MatchHeader is the chip above the result cards
func MatchHeader(count int, condition, preferences string) string {
	header := formatCount(count) + " matches"
	if condition != "" {
		header += " for your description"
	}
	if preferences != "" {
		header += " • preferences applied"
	}
	return header
}

// FinderView is everything the finder page and its panel need
type FinderView struct {
	Info      string
	Query     trial.PatientQuery
	Submitted bool
	Header    string
	Cards     []CardView
	Summary   trial.ScoreSummary
	ScoreLine string
	Task      TaskView
}

// NewFinderView derives the finder page state
func NewFinderView(state session.FinderState) FinderView {
	view := FinderView{
		Info:      FinderInfo,
		Query:     state.Query,
		Submitted: state.Submitted,
		Task:      newTaskView(state.Task),
	}
	if !state.Submitted {
		return view
	}

	view.Header = MatchHeader(len(state.Results), state.Query.Condition, state.Query.Preferences)
	view.Summary = trial.SummarizeScores(state.Results)
	view.ScoreLine = scoreLine(view.Summary)
	view.Cards = make([]CardView, 0, len(state.Results))
	for _, record := range state.Results {
		view.Cards = append(view.Cards, NewCardView(record))
	}
	return view
}

// PageView is the data of a full page render
type PageView struct {
	SessionID string
	Page      session.Page
	Risk      RiskView
	Finder    FinderView
}

// NewPageView dispatches on the session's page
func NewPageView(sess *session.Session) PageView {
	view := PageView{
		SessionID: sess.ID.String(),
		Page:      sess.Page,
	}
	if view.Page == "" {
		view.Page = session.PageLanding
	}

	switch view.Page {
	case session.PageRisk:
		view.Risk = NewRiskView(sess.Risk)
	case session.PageFinder:
		view.Finder = NewFinderView(sess.Finder)
	}
	return view
}
