package middleware

import "context"

type contextKey string

const ctxStaffEmail contextKey = "staff_email"

func StaffEmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStaffEmail).(string); ok {
		return v
	}
	return ""
}

// WithStaffEmail injects the authenticated staff email into the context.
func WithStaffEmail(ctx context.Context, email string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStaffEmail, email)
}
