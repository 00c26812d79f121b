package validation

const (
	// Password requirements
	MinPasswordLength    = 8
	StrongPasswordLength = 12
	MaxPasswordLength    = 72 // bcrypt ignores anything longer

	CPFLength = 11

	MaxNameLength  = 120
	MaxEmailLength = 254
)

// Password strength labels
const (
	StrengthWeak   = "Weak"
	StrengthFair   = "Fair"
	StrengthGood   = "Good"
	StrengthStrong = "Strong"
)
