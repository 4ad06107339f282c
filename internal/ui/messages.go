package ui

import (
	"hevcpress/internal/model"
	"hevcpress/internal/progress"
)

type jobUpdateMsg struct {
	U progress.Update
}

type jobLogMsg struct {
	L progress.Log
}

type jobResultMsg struct {
	R progress.Result
}

type batchDoneMsg struct {
	Report model.BatchReport
	Err    error
}
