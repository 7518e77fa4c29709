package goeqa

import (
	"github.com/datar-psa/goeqa/api"
)

type Question = api.Question
type AnswerRecord = api.AnswerRecord
type InferenceParams = api.InferenceParams
type Answerer = api.Answerer
type LLMGenerator = api.LLMGenerator

type NotFoundError = api.NotFoundError
type MissingAssetError = api.MissingAssetError
type InferenceError = api.InferenceError
