package mailer

import "fmt"

func verificationBody(fullName, link string) string {
	return fmt.Sprintf(`Hi %s,

Welcome to Bazaarly. Confirm your email address by opening the link below:

%s

The link expires in 20 minutes. If you did not create an account, ignore this mail.
`, greetingName(fullName), link)
}

func passwordResetBody(fullName, link string) string {
	return fmt.Sprintf(`Hi %s,

We received a request to reset your password. Open the link below to choose a new one:

%s

The link expires in 20 minutes. If you did not request a reset, your password is unchanged and you can ignore this mail.
`, greetingName(fullName), link)
}

func accountDeletionBody(fullName, link string) string {
	return fmt.Sprintf(`Hi %s,

We received a request to delete your account. Open the link below to confirm:

%s

The link expires in 20 minutes. Deletion is permanent. If you did not request this, ignore this mail and consider changing your password.
`, greetingName(fullName), link)
}

func greetingName(fullName string) string {
	if fullName == "" {
		return "there"
	}
	return fullName
}
