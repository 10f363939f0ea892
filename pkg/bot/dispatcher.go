// Package bot is the transport-agnostic command surface. The chat
// transport delivers inbound events (commands, plain text, quick-action
// callbacks) tagged with a chat identity; this package turns them into
// task operations and returns plain-text replies plus labeled
// quick-action tokens for the transport to render however it likes.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harrisonrobin/vikabot/pkg/actions"
	"github.com/harrisonrobin/vikabot/pkg/quicktask"
	"github.com/harrisonrobin/vikabot/pkg/session"
	"github.com/harrisonrobin/vikabot/pkg/vikunja"
)

// Action is one quick-action the transport may render as a button. The
// token comes back verbatim through OnAction when the user picks it.
type Action struct {
	Label string
	Token string
}

// Reply is the rendering-agnostic outcome of one inbound event.
// RedactInput asks the transport to delete the user's message from the
// chat log (set after a password has been typed).
type Reply struct {
	Text        string
	Actions     []Action
	RedactInput bool
}

// login conversation states
const (
	awaitingUsername = iota + 1
	awaitingPassword
)

type conversation struct {
	state    int
	username string
}

// Dispatcher routes inbound chat events. Structured commands and free
// text are two branches into the same parser/orchestrator pipeline, so
// a plain message behaves exactly like an explicit quick-add command.
type Dispatcher struct {
	registry *session.Registry
	tasks    *actions.Service
	now      func() time.Time

	mu    sync.Mutex
	convs map[string]*conversation
}

func NewDispatcher(registry *session.Registry, tasks *actions.Service) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		tasks:    tasks,
		now:      time.Now,
		convs:    make(map[string]*conversation),
	}
}

// OnCommand handles a structured command ("/login", "/tasks", ...).
func (d *Dispatcher) OnCommand(ctx context.Context, name, chatID, args string) Reply {
	interaction := ulid.Make().String()
	log.Printf("[%s] chat %s command /%s", interaction, chatID, name)

	// Any explicit command aborts an in-progress login conversation,
	// except /cancel which ends it with a confirmation.
	if name != "cancel" {
		d.clearConversation(chatID)
	}

	switch name {
	case "start":
		return d.start(ctx, chatID)
	case "login":
		return d.loginStart(chatID)
	case "logout":
		return d.logout(chatID)
	case "tasks":
		return d.taskList(ctx, chatID, 0)
	case "today":
		return d.today(ctx, chatID)
	case "projects":
		return d.projectList(ctx, chatID)
	case "due":
		return d.reschedule(ctx, chatID, args)
	case "status":
		return d.status(ctx, chatID)
	case "cancel":
		d.clearConversation(chatID)
		return Reply{Text: "Action canceled."}
	default:
		return Reply{Text: fmt.Sprintf("Unknown command /%s. Try /start for an overview.", name)}
	}
}

// OnPlainText handles a non-command message: either the next step of a
// login conversation, or an implicit create-task.
func (d *Dispatcher) OnPlainText(ctx context.Context, chatID, text string) Reply {
	interaction := ulid.Make().String()

	if conv := d.conversation(chatID); conv != nil {
		log.Printf("[%s] chat %s login conversation step", interaction, chatID)
		return d.loginStep(ctx, chatID, conv, text)
	}

	log.Printf("[%s] chat %s free-text task create", interaction, chatID)
	return d.createFromText(ctx, chatID, text)
}

// OnAction handles a quick-action token previously handed out in a
// Reply.
func (d *Dispatcher) OnAction(ctx context.Context, chatID, token string) Reply {
	interaction := ulid.Make().String()
	log.Printf("[%s] chat %s action %q", interaction, chatID, token)

	verb, arg, _ := strings.Cut(token, ":")
	switch verb {
	case "done":
		return d.markDone(ctx, chatID, arg)
	case "delete":
		return d.deleteTask(ctx, chatID, arg)
	case "page":
		page, err := strconv.Atoi(arg)
		if err != nil || page < 0 {
			page = 0
		}
		return d.taskList(ctx, chatID, page)
	case "all":
		return d.taskList(ctx, chatID, 0)
	default:
		return Reply{Text: "That action is no longer available."}
	}
}

func (d *Dispatcher) conversation(chatID string) *conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.convs[chatID]
}

func (d *Dispatcher) clearConversation(chatID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.convs, chatID)
}

func (d *Dispatcher) start(ctx context.Context, chatID string) Reply {
	if username, ok := d.registry.Username(chatID); ok {
		return Reply{Text: "Welcome to Vikunja Bot!\n\n" +
			"You are logged in as: " + username + "\n\n" +
			"Send any message to create a task (quick syntax: !priority, +project, *label, dates like \"tomorrow\").\n\n" +
			"Commands:\n" +
			"/tasks - View and manage your active tasks\n" +
			"/today - Show tasks due today\n" +
			"/projects - List your projects\n" +
			"/due - Reschedule a task, e.g. /due 42 tomorrow\n" +
			"/status - Check the Vikunja connection\n" +
			"/logout - Log out"}
	}
	return Reply{Text: "Welcome to Vikunja Bot!\n\n" +
		"You need to log in first. Use /login to authenticate with your Vikunja credentials."}
}

func (d *Dispatcher) loginStart(chatID string) Reply {
	d.mu.Lock()
	d.convs[chatID] = &conversation{state: awaitingUsername}
	d.mu.Unlock()
	return Reply{Text: "Let's log you in to Vikunja.\n\nPlease enter your username. Use /cancel to abort."}
}

func (d *Dispatcher) loginStep(ctx context.Context, chatID string, conv *conversation, text string) Reply {
	switch conv.state {
	case awaitingUsername:
		username := strings.TrimSpace(text)
		if username == "" {
			return Reply{Text: "That doesn't look like a username. Please enter your Vikunja username."}
		}
		d.mu.Lock()
		d.convs[chatID] = &conversation{state: awaitingPassword, username: username}
		d.mu.Unlock()
		return Reply{Text: "Username: " + username + "\n\nNow please enter your password."}

	case awaitingPassword:
		password := strings.TrimSpace(text)
		d.clearConversation(chatID)

		err := d.registry.Login(ctx, chatID, conv.username, password)
		if err != nil {
			var authErr *session.AuthError
			if errors.As(err, &authErr) {
				return Reply{Text: "Authentication failed. Please check your credentials and use /login to try again.", RedactInput: true}
			}
			return Reply{Text: d.errorText(err), RedactInput: true}
		}
		return Reply{
			Text: "Successfully logged in as " + conv.username + "!\n\n" +
				"Send any message to create a task, or use /tasks, /today and /status.",
			RedactInput: true,
		}
	}

	d.clearConversation(chatID)
	return Reply{Text: "Something went wrong with the login flow. Use /login to start over."}
}

func (d *Dispatcher) logout(chatID string) Reply {
	username, _ := d.registry.Username(chatID)
	if err := d.registry.Logout(chatID); err != nil {
		log.Printf("Warning: logout for chat %s: %v", chatID, err)
		return Reply{Text: "Could not remove your saved credentials. Please try again."}
	}
	text := "Logged out. Your saved credentials have been removed.\n\nUse /login to log in again."
	if username != "" {
		text = "Logged out " + username + ". Your saved credentials have been removed.\n\nUse /login to log in again."
	}
	return Reply{Text: text}
}

func (d *Dispatcher) status(ctx context.Context, chatID string) Reply {
	if err := d.tasks.CheckConnection(ctx, chatID); err != nil {
		return Reply{Text: d.errorText(err)}
	}
	username, _ := d.registry.Username(chatID)
	return Reply{Text: "Connected to Vikunja.\nLogged in as: " + username}
}

func (d *Dispatcher) createFromText(ctx context.Context, chatID, text string) Reply {
	draft := quicktask.Parse(text, d.now())

	task, err := d.tasks.Create(ctx, chatID, draft)
	if err != nil {
		return Reply{Text: d.errorText(err)}
	}

	reply := Reply{Text: "Task created: " + task.Title}
	if !task.DueDate.IsZero() {
		reply.Text += "\nDue: " + task.DueDate.UTC().Format("2006-01-02")
	}

	// Follow up with a quick view of what's on the plate.
	if listing := d.quickList(ctx, chatID); listing != nil {
		reply.Text += "\n\n" + listing.Text
		reply.Actions = listing.Actions
	}
	return reply
}

func (d *Dispatcher) markDone(ctx context.Context, chatID, arg string) Reply {
	taskID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return Reply{Text: "That action is no longer available."}
	}
	task, err := d.tasks.Complete(ctx, chatID, taskID)
	if err != nil {
		return Reply{Text: d.errorText(err)}
	}

	reply := Reply{Text: "Marked as done: " + task.Title}
	if listing := d.quickList(ctx, chatID); listing != nil {
		reply.Text += "\n\n" + listing.Text
		reply.Actions = listing.Actions
	}
	return reply
}

func (d *Dispatcher) deleteTask(ctx context.Context, chatID, arg string) Reply {
	taskID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return Reply{Text: "That action is no longer available."}
	}
	if err := d.tasks.Delete(ctx, chatID, taskID); err != nil {
		return Reply{Text: d.errorText(err)}
	}
	return Reply{Text: "Task deleted."}
}

// reschedule handles "/due <task id> <date phrase>". Task ids are shown
// in the /tasks listing.
func (d *Dispatcher) reschedule(ctx context.Context, chatID, args string) Reply {
	idText, phrase, _ := strings.Cut(strings.TrimSpace(args), " ")
	taskID, err := strconv.ParseInt(idText, 10, 64)
	phrase = strings.TrimSpace(phrase)
	if err != nil || phrase == "" {
		return Reply{Text: "Usage: /due <task id> <date>, e.g. /due 42 tomorrow"}
	}

	due, ok := quicktask.ResolveDate(phrase, d.now())
	if !ok {
		return Reply{Text: fmt.Sprintf("Sorry, %q is not a date I understand. Try \"tomorrow\", \"next friday\" or 2025-04-25.", phrase)}
	}

	task, err := d.tasks.SetDueDate(ctx, chatID, taskID, due)
	if err != nil {
		return Reply{Text: d.errorText(err)}
	}
	return Reply{Text: fmt.Sprintf("Rescheduled %q to %s.", task.Title, task.DueDate.UTC().Format("2006-01-02"))}
}

func (d *Dispatcher) today(ctx context.Context, chatID string) Reply {
	due, err := d.tasks.ListDueToday(ctx, chatID, d.now())
	if err != nil {
		return Reply{Text: d.errorText(err)}
	}
	if len(due) == 0 {
		return Reply{Text: "No tasks due today!"}
	}
	return Reply{Text: renderDueToday(due)}
}

func (d *Dispatcher) projectList(ctx context.Context, chatID string) Reply {
	projects, err := d.tasks.Projects(ctx, chatID)
	if err != nil {
		return Reply{Text: d.errorText(err)}
	}
	if len(projects) == 0 {
		return Reply{Text: "No projects found in Vikunja."}
	}
	return Reply{Text: renderProjects(projects)}
}

// errorText maps the error taxonomy to user-facing phrasing. The kinds
// stay distinct so onboarding, re-entry and "try later" each read
// differently.
func (d *Dispatcher) errorText(err error) string {
	switch {
	case errors.Is(err, session.ErrRequiresLogin):
		return "You need to log in first.\n\nUse /login to authenticate with your Vikunja credentials."
	case errors.Is(err, vikunja.ErrUnavailable):
		return "Cannot reach Vikunja right now. Please try again shortly."
	case errors.Is(err, vikunja.ErrUnauthorized):
		return "Your session has expired. Use /login to authenticate again."
	case errors.Is(err, actions.ErrNoProjects):
		return "Your account has no projects yet. Create one in Vikunja, or mention one with +project."
	case errors.Is(err, vikunja.ErrNotFound):
		return "That task, project or label no longer exists."
	default:
		log.Printf("Warning: unhandled error surfaced to user: %v", err)
		return "Something went wrong talking to Vikunja. Please try again."
	}
}
