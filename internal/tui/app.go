package tui

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"teamboard/internal/api"
	"teamboard/internal/service"
	"teamboard/internal/session"
	"teamboard/internal/store"
	"teamboard/internal/views"
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      *store.SessionStore
	Logger     *zerolog.Logger
	ASCII      bool
}

// Run starts the full-screen board and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	applyThemePreference()
	applyColorProfilePreference()

	m := newAppModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	// A 401 can surface from any in-flight request; Send must not block the
	// request goroutine if the program is already shutting down.
	m.sess.SetNavigator(session.NavigatorFunc(func() { go p.Send(sessionExpiredMsg{}) }))

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type view int

const (
	viewLoading view = iota
	viewLogin
	viewDashboard
	viewBoard
	viewDetail
)

type (
	sessionSettledMsg struct{}
	sessionExpiredMsg struct{}
	authDoneMsg       struct{ err error }
	actionDoneMsg     struct {
		err   error
		flash string
	}
)

const (
	noticeExpired      = "Your session has expired. Please sign in again."
	noticeRestoreError = "Could not restore your session. Please sign in again."
)

type appModel struct {
	ctx  context.Context
	log  zerolog.Logger
	sess *session.Session
	deps views.Deps
	g    glyphs
	keys keyMap

	width  int
	height int

	view    view
	spinner spinner.Model
	modal   *modal
	flash   string

	auth authForm

	dash    *views.Dashboard
	dashSel int

	board *views.Board
	cur   boardCursor
	grab  *grabState

	detail    *views.TaskDetail
	detailSel int
}

func newAppModel(ctx context.Context, opts Options) appModel {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	sess, svc := session.Connect(session.ConnectOptions{
		BaseURL:    opts.BaseURL,
		HTTPClient: opts.HTTPClient,
		Store:      opts.Store,
		Logger:     &log,
	})
	return appModel{
		ctx:     ctx,
		log:     log.With().Str("component", "tui").Logger(),
		sess:    sess,
		deps:    views.Deps{Services: svc, Identity: sess, Logger: &log},
		g:       glyphsFor(opts.ASCII),
		keys:    defaultKeyMap(),
		view:    viewLoading,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		auth:    newAuthForm(),
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initSession())
}

func (m appModel) initSession() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		sess.Init(ctx)
		return sessionSettledMsg{}
	}
}

// do runs fn off the UI goroutine and reports back with an actionDoneMsg.
func (m appModel) do(flash string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{err: fn(ctx), flash: flash}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.view != viewLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionSettledMsg:
		return m.settle()

	case sessionExpiredMsg:
		if m.view == viewLogin {
			return m, nil
		}
		m.toLogin(noticeExpired)
		cmd := m.auth.focusField(m.auth.focus)
		return m, cmd

	case authDoneMsg:
		return m.authDone(msg)

	case actionDoneMsg:
		return m.actionDone(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.flash = ""
		if m.modal != nil {
			return m.updateModal(msg)
		}
		switch m.view {
		case viewLogin:
			return m.updateLogin(msg)
		case viewDashboard:
			return m.updateDashboard(msg)
		case viewBoard:
			return m.updateBoard(msg)
		case viewDetail:
			return m.updateDetail(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}

	// Cursor blink and similar messages go to whichever input has focus.
	var cmd tea.Cmd
	switch {
	case m.modal != nil:
		cmd = m.modal.updateInputs(msg)
	case m.view == viewLogin:
		cmd = m.auth.updateInputs(msg)
	}
	return m, cmd
}

func (m appModel) settle() (tea.Model, tea.Cmd) {
	switch m.sess.Outcome() {
	case session.InitResolved:
		return m.openDashboard()
	case session.InitFailed:
		m.log.Warn().Err(m.sess.InitErr()).Msg("restore session")
		m.toLogin(noticeRestoreError)
	default:
		m.toLogin("")
	}
	cmd := m.auth.focusField(m.auth.focus)
	return m, cmd
}

func (m appModel) actionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, api.ErrUnauthorized) {
		m.toLogin(noticeExpired)
		cmd := m.auth.focusField(m.auth.focus)
		return m, cmd
	}
	if msg.err != nil {
		m.log.Debug().Err(msg.err).Msg("action failed")
	} else if msg.flash != "" {
		m.flash = msg.flash
	}
	if m.view == viewDetail && m.detail != nil && m.detail.Deleted() {
		next, cmd := m.openBoard()
		nm := next.(appModel)
		nm.flash = "Task deleted."
		return nm, cmd
	}
	m.clampSelections()
	return m, nil
}

// toLogin drops every open page. Responses still in flight for those pages
// are discarded by their controllers.
func (m *appModel) toLogin(notice string) {
	m.closePages()
	m.modal = nil
	m.grab = nil
	m.view = viewLogin
	m.auth.reset()
	m.auth.notice = notice
}

func (m *appModel) closePages() {
	if m.dash != nil {
		m.dash.Close()
		m.dash = nil
	}
	if m.board != nil {
		m.board.Close()
		m.board = nil
	}
	if m.detail != nil {
		m.detail.Close()
		m.detail = nil
	}
}

func (m appModel) openDashboard() (tea.Model, tea.Cmd) {
	m.closePages()
	m.view = viewDashboard
	m.dash = views.NewDashboard(m.deps)
	m.dashSel = 0
	return m, m.do("", m.dash.Load)
}

func (m appModel) openBoard() (tea.Model, tea.Cmd) {
	m.closePages()
	m.view = viewBoard
	m.board = views.NewBoard(m.deps)
	m.cur = boardCursor{}
	m.grab = nil
	return m, m.do("", m.board.Load)
}

func (m appModel) openDetail(taskID int64) (tea.Model, tea.Cmd) {
	m.closePages()
	m.view = viewDetail
	m.detail = views.NewTaskDetail(m.deps, taskID)
	m.detailSel = 0
	return m, m.do("", m.detail.Load)
}

func (m appModel) logout() (tea.Model, tea.Cmd) {
	sess, ctx := m.sess, m.ctx
	m.toLogin("Signed out.")
	focus := m.auth.focusField(m.auth.focus)
	return m, tea.Batch(focus, func() tea.Msg {
		_ = sess.Logout(ctx)
		return nil
	})
}

func (m *appModel) clampSelections() {
	if m.dash != nil {
		m.dashSel = clamp(m.dashSel, 0, len(m.dashRows())-1)
	}
	if m.board != nil {
		m.cur = m.cur.clamp(m.board.Columns())
	}
	if m.detail != nil {
		t, _ := m.detail.Task()
		m.detailSel = clamp(m.detailSel, 0, len(t.SubTasks)-1)
	}
}

func (m appModel) View() string {
	var body string
	switch m.view {
	case viewLoading:
		body = m.spinner.View() + " Restoring session..."
	case viewLogin:
		body = m.viewLogin()
	case viewDashboard:
		body = m.viewDashboard()
	case viewBoard:
		body = m.viewBoard()
	case viewDetail:
		body = m.viewDetail()
	}
	if m.modal != nil {
		return m.overlay(m.modal.view(m.modalWidth()))
	}
	return body
}

func (m appModel) overlay(box string) string {
	if m.width <= 0 || m.height <= 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// header is the top line of every signed-in screen.
func (m appModel) header(title string) string {
	left := styleTitle().Render("Teamboard") + styleMuted().Render(" / ") + styleTitle().Render(title)
	u, ok := m.sess.User()
	if !ok {
		return left
	}
	who := u.Name
	if u.IsAdmin() {
		who += " (admin)"
	}
	if u.Team != nil && u.Team.Name != "" {
		who += " · " + u.Team.Name
	}
	return left + "   " + styleMuted().Render(who)
}

type pageState interface {
	Err() string
	IsLoading() bool
}

func (m appModel) frame(title string, p pageState, content, help string) string {
	parts := []string{m.header(title)}
	if p != nil {
		if e := p.Err(); e != "" {
			parts = append(parts, styleBanner().Render(e))
		}
		if p.IsLoading() {
			parts = append(parts, m.spinner.View()+" Loading...")
		}
	}
	if m.flash != "" {
		parts = append(parts, styleMuted().Render(m.flash))
	}
	parts = append(parts, "", content, "", help)
	return strings.Join(parts, "\n")
}

func (m appModel) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

// errorText is the message shown for a failed sign-in.
func errorText(err error) string {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var se *service.Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var ae *api.Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	var te *api.TransportError
	if errors.As(err, &te) {
		return "Cannot reach the server."
	}
	return err.Error()
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
