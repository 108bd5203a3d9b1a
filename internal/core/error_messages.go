package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/storage"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/twbx"
)

// UserMessage provides caller-facing error information with guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var kindMessages = map[errs.Kind]UserMessage{
	errs.KindArchive: {
		Message: "The workbook archive could not be read",
		Action:  "Check that the file is a valid packaged workbook (.twbx)",
		Code:    "ARC001",
	},
	errs.KindConnection: {
		Message: "The workbook extract could not be opened",
		Action:  "Re-save the workbook with a current Tableau version and try again",
		Code:    "CON001",
	},
	errs.KindDownload: {
		Message: "The workbook could not be downloaded",
		Action:  "Verify the blob path and that the file exists in the input container",
		Code:    "DL001",
	},
	errs.KindUpload: {
		Message: "The CSV files could not be stored",
		Action:  "Please try again in a few moments",
		Code:    "UPL001",
	},
	errs.KindStorageConfig: {
		Message: "Object storage is not configured",
		Action:  "Set the storage endpoint and credentials, then restart the service",
		Code:    "CFG001",
	},
	errs.KindInvalidRequest: {
		Message: "The request is invalid",
		Action:  "Send a JSON body with a non-empty blob_path",
		Code:    "REQ001",
	},
	errs.KindBusy: {
		Message: "Too many extractions are running",
		Action:  "Please wait a moment and try again",
		Code:    "BUSY001",
	},
}

var (
	noExtractMessage = UserMessage{
		Message: "The workbook contains no data extract",
		Action:  "Publish the workbook with an extract instead of a live connection",
		Code:    "ARC002",
	}
	objectNotFoundMessage = UserMessage{
		Message: "The workbook was not found",
		Action:  "Verify the blob path and that the file exists in the input container",
		Code:    "DL002",
	}
	cancelledMessage = UserMessage{
		Message: "The extraction was cancelled",
		Action:  "Please try again",
		Code:    "JOB001",
	}
	timeoutMessage = UserMessage{
		Message: "The extraction took too long",
		Action:  "Try a smaller workbook or ask an administrator to raise the job timeout",
		Code:    "JOB002",
	}
	defaultMessage = UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
)

// MapError converts an error to a UserMessage. More specific causes win over
// the error kind; unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, twbx.ErrNoExtract):
		return noExtractMessage
	case errors.Is(err, context.DeadlineExceeded):
		return timeoutMessage
	case errors.Is(err, context.Canceled):
		return cancelledMessage
	}

	var serr *storage.Error
	if errors.As(err, &serr) && serr.Code == storage.CodeObjectNotFound && errs.Is(err, errs.KindDownload) {
		return objectNotFoundMessage
	}

	if msg, ok := kindMessages[errs.KindOf(err)]; ok {
		return msg
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
