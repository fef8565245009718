package registry

import (
	"context"
	"encoding/json"
	"math"

	"github.com/xiy/toolbelt-mcp/internal/currency"
	"github.com/xiy/toolbelt-mcp/internal/mailer"
	"github.com/xiy/toolbelt-mcp/internal/tasks"
	"github.com/xiy/toolbelt-mcp/internal/tools"
	"github.com/xiy/toolbelt-mcp/internal/weather"
	"github.com/xiy/toolbelt-mcp/internal/websearch"
)

// Deps carries the constructed clients the catalog tools delegate to. A nil
// provider client means its credential was missing at startup; the matching
// tools are still registered but return a Configuration error when called.
type Deps struct {
	Weather     *weather.Client
	Currency    *currency.Client
	Mailer      *mailer.Client
	Search      websearch.Provider
	Tasks       *tasks.Store
	SearchLimit int
}

// Catalog builds the full HTTP tool set.
func Catalog(deps Deps) (*Registry, error) {
	r := New()
	for _, t := range catalogTools(deps) {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func catalogTools(deps Deps) []Tool {
	return []Tool{
		{
			Name:        "weather",
			Description: "Get current weather for a location",
			Parameters: map[string]Param{
				"location": {Type: "string", Description: "City name (e.g., Tokyo)"},
			},
			Handler: weatherHandler(deps.Weather),
		},
		{
			Name:        "datetime",
			Description: "Get current date, time, and day of week",
			Parameters:  map[string]Param{},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				info := tools.CurrentDateTime()
				return map[string]any{"date": info.Date, "time": info.Time, "day": info.Day}, nil
			},
		},
		{
			Name:        "datetime_format",
			Description: "Format a date string according to specified format",
			Parameters: map[string]Param{
				"date_str":   {Type: "string", Description: "Date string (ISO format or YYYY-MM-DD)"},
				"format_str": {Type: "string", Description: "Format string (e.g., %Y-%m-%d %H:%M:%S)"},
			},
			Required: []string{"date_str", "format_str"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				formatted, err := tools.FormatDate(stringArg(args, "date_str", ""), stringArg(args, "format_str", ""))
				if err != nil {
					return nil, err
				}
				return map[string]any{"formatted": formatted}, nil
			},
		},
		{
			Name:        "calculator",
			Description: "Perform basic arithmetic calculations",
			Parameters: map[string]Param{
				"expression": {Type: "string", Description: "Math expression (e.g., 5 + 3)"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				result, err := tools.Evaluate(stringArg(args, "expression", "0"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"result": result}, nil
			},
		},
		{
			Name:        "duckduckgo_search",
			Description: "Search the web using DuckDuckGo",
			Parameters: map[string]Param{
				"query": {Type: "string", Description: "Search term"},
			},
			Required: []string{"query"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query := stringArg(args, "query", "")
				if query == "" {
					return nil, tools.Validationf("query is required")
				}
				return deps.Search.Search(ctx, query, deps.SearchLimit), nil
			},
		},
		{
			Name:        "email",
			Description: "Send an email using Mailgun",
			Parameters: map[string]Param{
				"to":        {Type: "string", Description: "Recipient email address"},
				"subject":   {Type: "string", Description: "Email subject"},
				"text":      {Type: "string", Description: "Email body content"},
				"from_name": {Type: "string", Description: "Sender name (optional)"},
			},
			Required: []string{"to", "subject", "text"},
			Handler:  emailHandler(deps.Mailer),
		},
		{
			Name:        "calendar",
			Description: "Get calendar for a specific month",
			Parameters: map[string]Param{
				"year":  {Type: "integer", Description: "Year (optional, defaults to current)"},
				"month": {Type: "integer", Description: "Month 1-12 (optional, defaults to current)"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				year, err := intArg(args, "year", 0)
				if err != nil {
					return nil, err
				}
				month, err := intArg(args, "month", 0)
				if err != nil {
					return nil, err
				}
				return tools.MonthCalendar(year, month)
			},
		},
		{
			Name:        "upcoming_dates",
			Description: "Get upcoming dates of a specific type",
			Parameters: map[string]Param{
				"date_type": {Type: "string", Description: "Type of dates (weekend, business_days)"},
				"count":     {Type: "integer", Description: "Number of dates to retrieve (optional)"},
			},
			Required: []string{"date_type"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				count, err := intArg(args, "count", 5)
				if err != nil {
					return nil, err
				}
				return tools.UpcomingDates(stringArg(args, "date_type", ""), count)
			},
		},
		{
			Name:        "tasks_add",
			Description: "Add a new task",
			Parameters: map[string]Param{
				"title":       {Type: "string", Description: "Task title"},
				"description": {Type: "string", Description: "Task description (optional)"},
				"due_date":    {Type: "string", Description: "Due date in YYYY-MM-DD format (optional)"},
				"priority":    {Type: "string", Description: "Priority: low, medium, high (optional)"},
			},
			Required: []string{"title"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				var dueDate *string
				if s, ok := args["due_date"].(string); ok {
					dueDate = &s
				}
				return deps.Tasks.Add(
					stringArg(args, "title", ""),
					stringArg(args, "description", ""),
					dueDate,
					stringArg(args, "priority", "medium"),
				)
			},
		},
		{
			Name:        "tasks_get",
			Description: "Get tasks with optional filtering",
			Parameters: map[string]Param{
				"filter_type": {Type: "string", Description: "Filter: all, active, completed (optional)"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				list, err := deps.Tasks.List(stringArg(args, "filter_type", ""))
				if err != nil {
					return nil, err
				}
				return map[string]any{"tasks": list}, nil
			},
		},
		{
			Name:        "tasks_update",
			Description: "Update a task",
			Parameters: map[string]Param{
				"task_id": {Type: "integer", Description: "Task ID to update"},
				"updates": {Type: "object", Description: "Fields to update"},
			},
			Required: []string{"task_id", "updates"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := intArg(args, "task_id", 0)
				if err != nil {
					return nil, err
				}
				updates, _ := args["updates"].(map[string]any)
				if len(updates) == 0 {
					return nil, tools.Validationf("no updates provided")
				}
				return deps.Tasks.Update(id, updates)
			},
		},
		{
			Name:        "tasks_delete",
			Description: "Delete a task",
			Parameters: map[string]Param{
				"task_id": {Type: "integer", Description: "Task ID to delete"},
			},
			Required: []string{"task_id"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := intArg(args, "task_id", 0)
				if err != nil {
					return nil, err
				}
				if err := deps.Tasks.Delete(id); err != nil {
					return nil, err
				}
				return map[string]any{"success": true}, nil
			},
		},
		{
			Name:        "currency_convert",
			Description: "Convert between currencies",
			Parameters: map[string]Param{
				"from_currency": {Type: "string", Description: "Source currency code (e.g., USD)"},
				"to_currency":   {Type: "string", Description: "Target currency code (e.g., EUR)"},
				"amount":        {Type: "number", Description: "Amount to convert"},
			},
			Required: []string{"from_currency", "to_currency", "amount"},
			Handler:  convertHandler(deps.Currency),
		},
		{
			Name:        "currency_rates",
			Description: "Get exchange rates for a base currency",
			Parameters: map[string]Param{
				"base_currency": {Type: "string", Description: "Base currency code (e.g., USD)"},
			},
			Required: []string{"base_currency"},
			Handler:  ratesHandler(deps.Currency),
		},
	}
}

func weatherHandler(client *weather.Client) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if client == nil {
			return nil, tools.Configurationf("OpenWeatherMap API key not configured")
		}
		return client.Current(ctx, stringArg(args, "location", "New York"))
	}
}

func emailHandler(client *mailer.Client) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if client == nil {
			return nil, tools.Configurationf("Mailgun API key or domain not configured")
		}
		return client.Send(ctx,
			stringArg(args, "to", ""),
			stringArg(args, "subject", ""),
			stringArg(args, "text", ""),
			stringArg(args, "from_name", ""),
		)
	}
}

func convertHandler(client *currency.Client) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if client == nil {
			return nil, tools.Configurationf("exchange rate API key not configured")
		}
		return client.Convert(ctx,
			stringArg(args, "from_currency", ""),
			stringArg(args, "to_currency", ""),
			args["amount"],
		)
	}
}

func ratesHandler(client *currency.Client) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if client == nil {
			return nil, tools.Configurationf("exchange rate API key not configured")
		}
		return client.Rates(ctx, stringArg(args, "base_currency", ""))
	}
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intArg accepts the numeric shapes a decoded JSON body can carry.
func intArg(args map[string]any, key string, fallback int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, tools.Validationf("%s must be an integer", key)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, tools.Validationf("%s must be an integer", key)
		}
		return int(i), nil
	default:
		return 0, tools.Validationf("%s must be an integer", key)
	}
}
