package accessservice

import "context"

// Service is the entry-access token surface: magic-link issuance and
// consumption, and staff-code redemption.
type Service interface {
	IssueMagicLink(ctx context.Context, input IssueMagicLinkInput) (IssueMagicLinkResult, error)
	ConsumeMagicLink(ctx context.Context, signedToken string) (ConsumeMagicLinkResult, error)
	RedeemStaffCode(ctx context.Context, input RedeemStaffCodeInput) (RedeemStaffCodeResult, error)
}
