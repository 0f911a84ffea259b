package logging

import (
	"context"
)

type contextKey string

const (
	TeamIDKey      contextKey = "team_id"
	StreamKey      contextKey = "stream"
	ServiceNameKey contextKey = "service_name"
)

func WithTeamID(ctx context.Context, teamID string) context.Context {
	return context.WithValue(ctx, TeamIDKey, teamID)
}

func WithStream(ctx context.Context, stream string) context.Context {
	return context.WithValue(ctx, StreamKey, stream)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetTeamID(ctx context.Context) string {
	if teamID, ok := ctx.Value(TeamIDKey).(string); ok {
		return teamID
	}
	return ""
}

func GetStream(ctx context.Context) string {
	if stream, ok := ctx.Value(StreamKey).(string); ok {
		return stream
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 6)

	if teamID := GetTeamID(ctx); teamID != "" {
		fields = append(fields, "team_id", teamID)
	}

	if stream := GetStream(ctx); stream != "" {
		fields = append(fields, "stream", stream)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
