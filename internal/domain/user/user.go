package user

import "strings"

type Role string

const (
	RoleStudent  Role = "student"
	RoleEmployer Role = "employer"
)

func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleEmployer:
		return RoleEmployer, true
	default:
		return "", false
	}
}
