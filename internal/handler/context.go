package handler

type ContextKey string

var (
	RoleCtxKey          ContextKey = "role"
	SubCtxKey           ContextKey = "sub"
	MyInfoCtx           ContextKey = "myInfo"
	UserInfoCtx         ContextKey = "userInfo"
	DutyDateCtx         ContextKey = "dutyDate"
	ChecklistSessionCtx ContextKey = "checklistSession"
)
