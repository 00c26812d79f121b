package errors

var (
	ErrEmailExists = &DomainError{
		Code:    "EMAIL_EXISTS",
		Message: "email already exists",
		Kind:    KindConflict,
	}
	ErrPasswordTooShort = &DomainError{
		Code:    "PASSWORD_TOO_SHORT",
		Message: "password must be at least 8 characters",
		Kind:    KindValidation,
	}
	ErrInvalidCPF = &DomainError{
		Code:    "INVALID_CPF",
		Message: "CPF must be 11 digits",
		Kind:    KindValidation,
	}
	ErrInvalidBirthDate = &DomainError{
		Code:    "INVALID_BIRTH_DATE",
		Message: "birth date must be formatted as YYYY-MM-DD",
		Kind:    KindValidation,
	}
	ErrInvalidEmail = &DomainError{
		Code:    "INVALID_EMAIL",
		Message: "must be a valid email address",
		Kind:    KindValidation,
	}
	ErrInvalidCredentials = &DomainError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid credentials",
		Kind:    KindUnauthorized,
	}
	ErrInvalidToken = &DomainError{
		Code:    "INVALID_TOKEN",
		Message: "invalid or expired token",
		Kind:    KindUnauthorized,
	}
	ErrInvalidCode = &DomainError{
		Code:    "INVALID_CODE",
		Message: "invalid code",
		Kind:    KindValidation,
	}
	ErrTwoFANotSetUp = &DomainError{
		Code:    "TWO_FA_NOT_SET_UP",
		Message: "two-factor authentication has not been set up",
		Kind:    KindConflict,
	}
	ErrTwoFAAlreadyEnabled = &DomainError{
		Code:    "TWO_FA_ALREADY_ENABLED",
		Message: "two-factor authentication is already enabled",
		Kind:    KindConflict,
	}
	ErrUserNotFound = &DomainError{
		Code:    "USER_NOT_FOUND",
		Message: "user not found",
		Kind:    KindNotFound,
	}
)

var ErrNameRequired = &DomainError{
	Code:    "NAME_REQUIRED",
	Message: "name must not be empty",
	Kind:    KindValidation,
}

var ErrPasswordTooLong = &DomainError{
	Code:    "PASSWORD_TOO_LONG",
	Message: "password must not be more than 72 bytes",
	Kind:    KindValidation,
}
