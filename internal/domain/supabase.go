package domain

import "github.com/supabase-community/supabase-go"

type SupabaseClient interface {
	Initialize() error
	ValidateToken(token string) (*SupabaseUser, error)

	// DB returns the service-role client used by repositories and storage.
	DB() *supabase.Client
}
