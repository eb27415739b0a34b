package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, Profile, RefreshToken, Session, Role from user.go
// - Client, ClientInput, ClientPatch from client.go
// - Call, CallStatus, CallInput, CallPatch from call.go
// - Document, DocumentInput from document.go
// - Notification, NotificationInput, Event from notification.go
// - CallStats, AgentCallCount, HistoryItem from analytics.go

// Database schema overview:
// 1. users - Credentials for password sign-in
// 2. profiles - One per user (same id), holds the role that gates dashboards and data scope
// 3. refresh_tokens - Hashed refresh tokens that restore a session across restarts
// 4. clients - Company records owned by the agent who created them
// 5. calls - Call outcomes, each referencing a client and the agent who logged it
// 6. documents - Metadata of files stored in the documents bucket
// 7. notifications - Per-recipient messages toggled read/unread
