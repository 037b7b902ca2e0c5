package eventbus

// Subjects published by the engine. Downstream consumers (mailer, dashboards)
// subscribe to these; the engine never consumes them itself.
const (
	SubjectMagicLinkIssued       = "access.magiclink.issued"
	SubjectWitnessRequested      = "witness.confirmation.requested"
	SubjectWitnessResent         = "witness.confirmation.resent"
	SubjectWitnessConfirmed      = "witness.confirmation.confirmed"
	SubjectEntryCreated          = "entry.created"
	SubjectEntryAutoMissed       = "entry.auto_missed"
	SubjectVerificationPending   = "verification.pending"
	SubjectVerificationDecided   = "verification.decided"
	SubjectVerificationAutoMiss  = "verification.auto_missed"
)
