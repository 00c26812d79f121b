package validation

// PasswordStrength scores a password from 0 to 100: 25 points for reaching
// the minimum length, 25 more at StrongPasswordLength, and 12.5 for each of
// lowercase, uppercase, digit and other characters. An empty password
// scores 0 with no label.
func PasswordStrength(password string) (float64, string) {
	if password == "" {
		return 0, ""
	}

	var score float64
	if len(password) >= MinPasswordLength {
		score += 25
	}
	if len(password) >= StrongPasswordLength {
		score += 25
	}

	var hasLower, hasUpper, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSpecial = true
		}
	}
	for _, ok := range []bool{hasLower, hasUpper, hasNumber, hasSpecial} {
		if ok {
			score += 12.5
		}
	}

	return score, StrengthLabel(score)
}

// StrengthLabel maps a strength score to Weak, Fair, Good or Strong.
func StrengthLabel(score float64) string {
	switch {
	case score <= 25:
		return StrengthWeak
	case score <= 50:
		return StrengthFair
	case score <= 75:
		return StrengthGood
	default:
		return StrengthStrong
	}
}
