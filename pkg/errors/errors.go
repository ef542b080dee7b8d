package errors

import (
	stderrors "errors"
	"fmt"
)

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	Unauthorized    = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID   = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// 挑战模块错误。
var (
	ChallengeNotFound    = Definition{Code: "CHALLENGE_NOT_FOUND", Message: "Challenge not found"}
	ChallengeNotJoinable = Definition{Code: "CHALLENGE_NOT_JOINABLE", Message: "Challenge is private"}
	InvalidChallenge     = Definition{Code: "INVALID_CHALLENGE", Message: "Invalid challenge"}
	InvalidDuration      = Definition{Code: "INVALID_DURATION", Message: "Duration must be a positive number of days"}
)

// 参与与打卡模块错误。前四个是预期内的业务结果，前端以提示形式展示。
var (
	DuplicateParticipation = Definition{Code: "DUPLICATE_PARTICIPATION", Message: "Already joined this challenge"}
	AlreadyCheckedInToday  = Definition{Code: "ALREADY_CHECKED_IN_TODAY", Message: "Already checked in today"}
	AlreadyCompleted       = Definition{Code: "ALREADY_COMPLETED", Message: "Challenge completed"}
	ParticipationNotActive = Definition{Code: "PARTICIPATION_NOT_ACTIVE", Message: "Participation is no longer active"}
	ParticipationNotFound  = Definition{Code: "PARTICIPATION_NOT_FOUND", Message: "Participation not found"}
	NoteTooLong            = Definition{Code: "NOTE_TOO_LONG", Message: "Check-in note is too long"}
	CheckInConflict        = Definition{Code: "CHECK_IN_CONFLICT", Message: "Check-in is being processed, please retry"}
	ProgressRegression     = Definition{Code: "PROGRESS_REGRESSION", Message: "Check-in would decrease progress"}
)

// 基础设施错误。
var (
	StoreUnavailable = Definition{Code: "STORE_UNAVAILABLE", Message: "Store unavailable"}
)

// 内部错误，不直接暴露给调用方。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:         InvalidRequest,
	Unauthorized.Code:           Unauthorized,
	InvalidUserID.Code:          InvalidUserID,
	TooManyRequests.Code:        TooManyRequests,
	ChallengeNotFound.Code:      ChallengeNotFound,
	ChallengeNotJoinable.Code:   ChallengeNotJoinable,
	InvalidChallenge.Code:       InvalidChallenge,
	InvalidDuration.Code:        InvalidDuration,
	DuplicateParticipation.Code: DuplicateParticipation,
	AlreadyCheckedInToday.Code:  AlreadyCheckedInToday,
	AlreadyCompleted.Code:       AlreadyCompleted,
	ParticipationNotActive.Code: ParticipationNotActive,
	ParticipationNotFound.Code:  ParticipationNotFound,
	NoteTooLong.Code:            NoteTooLong,
	CheckInConflict.Code:        CheckInConflict,
	ProgressRegression.Code:     ProgressRegression,
	StoreUnavailable.Code:       StoreUnavailable,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// IsRejection 判断是否为预期内的业务拒绝（非故障）
func IsRejection(err error) bool {
	var def Definition
	if !stderrors.As(err, &def) {
		return false
	}
	switch def.Code {
	case DuplicateParticipation.Code, AlreadyCheckedInToday.Code, AlreadyCompleted.Code, ParticipationNotActive.Code:
		return true
	}
	return false
}

// CauseError 携带底层原因的业务错误，errors.Is 同时匹配 Definition 和 Cause
type CauseError struct {
	Definition
	Cause error
}

func (e *CauseError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *CauseError) Unwrap() []error {
	return []error{e.Definition, e.Cause}
}

// WithCause 包装底层错误
func WithCause(def Definition, cause error) error {
	return &CauseError{Definition: def, Cause: cause}
}

// SkipMessageError 消费者遇到重复消息时返回，表示直接 ack 不重试
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}
