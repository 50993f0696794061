package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "auth",
			Action:       "register",
			Method:       "POST",
			PathTemplate: "/api/v1/auth/register",
			RequiresAuth: false,
			Fields: []Field{
				{Name: "username", Prompt: "username", Type: FieldString, Required: true},
				{Name: "email", Prompt: "email", Type: FieldString, Required: true},
				{Name: "password", Prompt: "password", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "auth",
			Action:       "login",
			Method:       "POST",
			PathTemplate: "/api/v1/auth/login",
			RequiresAuth: false,
			Fields: []Field{
				{Name: "username", Prompt: "username", Type: FieldString, Required: true},
				{Name: "password", Prompt: "password", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "auth",
			Action:       "refresh",
			Method:       "POST",
			PathTemplate: "/api/v1/auth/refresh",
			RequiresAuth: false,
			Fields: []Field{
				{Name: "refresh_token", Prompt: "refresh_token", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "auth",
			Action:       "logout",
			Method:       "POST",
			PathTemplate: "/api/v1/auth/logout",
			RequiresAuth: false,
			Fields: []Field{
				{Name: "refresh_token", Prompt: "refresh_token", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "add",
			Method:       "POST",
			PathTemplate: "/api/v1/problems",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "title", Prompt: "title", Type: FieldString, Required: true},
				{Name: "link", Prompt: "link", Type: FieldString, Required: false},
				{Name: "topic", Prompt: "topic", Type: FieldString, Required: false},
				{Name: "difficulty", Prompt: "difficulty (Easy/Medium/Hard)", Type: FieldString, Required: false},
				{Name: "status", Prompt: "status (Solved/Unsolved/Attempted)", Type: FieldString, Required: false},
			},
		},
		{
			Service:      "problem",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/:id",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt64, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/problems",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "search", Prompt: "search", Type: FieldString, Required: false},
				{Name: "topic", Prompt: "topic", Type: FieldString, Required: false},
				{Name: "difficulty", Prompt: "difficulty", Type: FieldString, Required: false},
				{Name: "status", Prompt: "status", Type: FieldString, Required: false},
				{Name: "sort_by", Prompt: "sort_by", Type: FieldString, Required: false},
				{Name: "order", Prompt: "order (asc/desc)", Type: FieldString, Required: false},
				{Name: "page", Prompt: "page", Type: FieldInt, Required: false},
				{Name: "page_size", Prompt: "page_size", Type: FieldInt, Required: false},
			},
			QueryFields: []string{"search", "topic", "difficulty", "status", "sort_by", "order", "page", "page_size"},
		},
		{
			Service:      "problem",
			Action:       "update",
			Method:       "PUT",
			PathTemplate: "/api/v1/problems/:id",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt64, Required: true},
				{Name: "title", Prompt: "title", Type: FieldString, Required: false},
				{Name: "link", Prompt: "link", Type: FieldString, Required: false},
				{Name: "topic", Prompt: "topic", Type: FieldString, Required: false},
				{Name: "difficulty", Prompt: "difficulty", Type: FieldString, Required: false},
				{Name: "status", Prompt: "status", Type: FieldString, Required: false},
			},
		},
		{
			Service:      "problem",
			Action:       "delete",
			Method:       "DELETE",
			PathTemplate: "/api/v1/problems/:id",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt64, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "export",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/export",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "out", Prompt: "output file", Type: FieldString, Required: false},
			},
		},
		{
			Service:      "stats",
			Action:       "summary",
			Method:       "GET",
			PathTemplate: "/api/v1/stats/summary",
			RequiresAuth: true,
		},
		{
			Service:      "stats",
			Action:       "heatmap",
			Method:       "GET",
			PathTemplate: "/api/v1/stats/heatmap",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "days", Prompt: "days", Type: FieldInt, Required: false},
			},
			QueryFields: []string{"days"},
		},
		{
			Service:      "stats",
			Action:       "groups",
			Method:       "GET",
			PathTemplate: "/api/v1/stats/groups",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "by", Prompt: "by (topic/difficulty/status/month)", Type: FieldString, Required: false},
				{Name: "sort", Prompt: "sort (count)", Type: FieldString, Required: false},
			},
			QueryFields: []string{"by", "sort"},
		},
		{
			Service:      "stats",
			Action:       "activity",
			Method:       "GET",
			PathTemplate: "/api/v1/stats/activity",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "bucket", Prompt: "bucket (day/week/month)", Type: FieldString, Required: false},
				{Name: "n", Prompt: "n", Type: FieldInt, Required: false},
			},
			QueryFields: []string{"bucket", "n"},
		},
		{
			Service:      "profile",
			Action:       "show",
			Method:       "GET",
			PathTemplate: "/api/v1/profile",
			RequiresAuth: true,
		},
		{
			Service:      "profile",
			Action:       "update",
			Method:       "PUT",
			PathTemplate: "/api/v1/profile",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "name", Prompt: "name", Type: FieldString, Required: false},
				{Name: "username", Prompt: "username", Type: FieldString, Required: false},
				{Name: "location", Prompt: "location", Type: FieldString, Required: false},
				{Name: "bio", Prompt: "bio", Type: FieldString, Required: false},
				{Name: "notifications", Prompt: "notifications (true/false)", Type: FieldBool, Required: false},
				{Name: "public_profile", Prompt: "public_profile (true/false)", Type: FieldBool, Required: false},
				{Name: "show_progress", Prompt: "show_progress (true/false)", Type: FieldBool, Required: false},
			},
		},
		{
			Service:      "profile",
			Action:       "dashboard",
			Method:       "GET",
			PathTemplate: "/api/v1/dashboard",
			RequiresAuth: true,
		},
		{
			Service:      "suggest",
			Action:       "similar",
			Method:       "GET",
			PathTemplate: "/api/v1/suggestions",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "name", Prompt: "problem name", Type: FieldString, Required: true},
				{Name: "link", Prompt: "link", Type: FieldString, Required: false},
				{Name: "id", Prompt: "problem id", Type: FieldString, Required: false},
			},
			QueryFields: []string{"name", "link", "id"},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		key := fmt.Sprintf("%s %s", cmd.Service, cmd.Action)
		result[key] = cmd
	}
	return result
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}
	path = appendQuery(path, cmd, params)

	var body []byte
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method:  cmd.Method,
		Path:    path,
		Headers: map[string]string{},
		Body:    body,
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	placeholder := ":id"
	if strings.Contains(path, placeholder) {
		value := params.Get("id")
		if value == "" {
			return "", fmt.Errorf("missing path parameter: id")
		}
		path = strings.ReplaceAll(path, placeholder, value)
	}
	return path, nil
}

func appendQuery(path string, cmd Command, params Params) string {
	if len(cmd.QueryFields) == 0 {
		return path
	}
	values := url.Values{}
	for _, key := range cmd.QueryFields {
		if value := params.Get(key); value != "" {
			values.Set(key, value)
		}
	}
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	switch cmd.Service {
	case "auth":
		switch cmd.Action {
		case "register":
			return map[string]string{
				"username": params.Get("username"),
				"email":    params.Get("email"),
				"password": params.Get("password"),
			}, nil
		case "login":
			return map[string]string{
				"username": params.Get("username"),
				"password": params.Get("password"),
			}, nil
		case "refresh", "logout":
			return map[string]string{
				"refresh_token": params.Get("refresh_token"),
			}, nil
		}
	case "problem":
		switch cmd.Action {
		case "add":
			payload := map[string]interface{}{
				"title": params.Get("title"),
			}
			setIfPresent(payload, params, "link", "topic", "difficulty", "status")
			return payload, nil
		case "update":
			// Only fields the user supplied go on the wire; the server
			// treats absent fields as "leave unchanged".
			payload := map[string]interface{}{}
			setIfPresent(payload, params, "title", "link", "topic", "difficulty", "status")
			if len(payload) == 0 {
				return nil, fmt.Errorf("nothing to update, provide at least one field")
			}
			return payload, nil
		}
	case "profile":
		if cmd.Action == "update" {
			payload := map[string]interface{}{}
			setIfPresent(payload, params, "name", "username", "location", "bio")
			for _, key := range []string{"notifications", "public_profile", "show_progress"} {
				if !params.Has(key) {
					continue
				}
				value, err := ParseBool(params.Get(key))
				if err != nil {
					return nil, fmt.Errorf("invalid %s: %w", key, err)
				}
				payload[key] = value
			}
			if len(payload) == 0 {
				return nil, fmt.Errorf("nothing to update, provide at least one field")
			}
			return payload, nil
		}
	}
	return nil, nil
}

func setIfPresent(payload map[string]interface{}, params Params, keys ...string) {
	for _, key := range keys {
		if params.Has(key) {
			payload[key] = params.Get(key)
		}
	}
}
