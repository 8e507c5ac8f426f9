package dialog

import (
	"strconv"
	"strings"

	"github.com/commie294/T4t/internal/domain/enums"
	"github.com/commie294/T4t/internal/domain/rules"
)

// Scratch value keys. Seed keys (username, is_adult, reported_id) are filled
// by the caller at Begin; the rest are collected step by step.
const (
	KeyUsername      = "username"
	KeyIsAdult       = "is_adult"
	KeyReportedID    = "reported_id"
	KeyName          = "name"
	KeyAge           = "age"
	KeyAgePreference = "age_preference"
	KeyGender        = "gender"
	KeyGenderDetail  = "gender_detail"
	KeyPhoto         = "photo_file_id"
	KeyBio           = "bio"
	KeyCity          = "city"
	KeyField         = "field"
	KeyValue         = "value"
	KeyReason        = "reason"
	KeyEvidence      = "evidence_file_id"
)

const skipLabel = "Пропустить"

type step struct {
	prompt   func(vals map[string]string) Prompt
	validate func(in Input, vals map[string]string) (map[string]string, string)
	next     func(vals map[string]string) string
}

type flow struct {
	kind  Kind
	first string
	steps map[string]step
	done  func(vals map[string]string) string
}

func builtinFlows() map[Kind]flow {
	return map[Kind]flow{
		KindRegistration: registrationFlow(),
		KindEditProfile:  editProfileFlow(),
		KindReport:       reportFlow(),
	}
}

func registrationFlow() flow {
	return flow{
		kind:  KindRegistration,
		first: "name",
		steps: map[string]step{
			"name": {
				prompt: textPrompt("Ваше имя: как вас будут видеть другие пользователи?"),
				validate: func(in Input, _ map[string]string) (map[string]string, string) {
					name := strings.TrimSpace(in.Text)
					if name == "" {
						return nil, "Пожалуйста, введите имя текстом."
					}
					return map[string]string{KeyName: name}, ""
				},
				next: staticNext("age"),
			},
			"age": {
				prompt: func(vals map[string]string) Prompt {
					return Prompt{Text: "Отлично, ваше имя будет '" + vals[KeyName] + "'. Теперь скажите, сколько вам лет?"}
				},
				validate: validateAge(KeyAge),
				next: func(vals map[string]string) string {
					if isAdult(vals) {
						return "age_preference"
					}
					return "gender"
				},
			},
			"age_preference": {
				prompt: func(_ map[string]string) Prompt {
					return Prompt{
						Text:    "Какой возраст вам интересен?",
						Options: bucketLabels(),
					}
				},
				validate: validateAgePreference,
				next:     staticNext("gender"),
			},
			"gender":       genderStep("photo"),
			"gender_other": genderOtherStep("photo"),
			"photo": {
				prompt:   textPrompt("Пожалуйста, загрузите вашу фотографию профиля."),
				validate: validatePhoto(KeyPhoto, false),
				next:     staticNext("bio"),
			},
			"bio": {
				prompt: textPrompt("Отлично, фото получено. Теперь расскажите немного о себе (ваши интересы, что вы ищете и т.д.)."),
				validate: func(in Input, _ map[string]string) (map[string]string, string) {
					bio := strings.TrimSpace(in.Text)
					if bio == "" {
						return nil, "Пожалуйста, расскажите о себе текстом."
					}
					return map[string]string{KeyBio: bio}, ""
				},
				next: staticNext("city"),
			},
			"city": {
				prompt:   textPrompt("Введите ваш город (или 'Any' для всех городов):"),
				validate: validateCity(KeyCity),
				next:     staticNext(stepCommit),
			},
		},
		done: func(_ map[string]string) string {
			return "Спасибо за регистрацию! Ваш профиль создан."
		},
	}
}

var editFieldLabels = map[string]string{
	"имя":                     KeyName,
	"возраст":                 KeyAge,
	"пол":                     KeyGender,
	"город":                   KeyCity,
	"фото":                    KeyPhoto,
	"описание":                KeyBio,
	"предпочтения по возрасту": KeyAgePreference,
}

func editProfileFlow() flow {
	return flow{
		kind:  KindEditProfile,
		first: "field",
		steps: map[string]step{
			"field": {
				prompt: func(vals map[string]string) Prompt {
					options := []string{"Имя", "Возраст", "Пол", "Город", "Фото", "Описание"}
					if isAdult(vals) {
						options = append(options, "Предпочтения по возрасту")
					}
					return Prompt{
						Text:    "Что вы хотите изменить в своем профиле?",
						Options: options,
					}
				},
				validate: func(in Input, _ map[string]string) (map[string]string, string) {
					field, ok := editFieldLabels[strings.ToLower(strings.TrimSpace(in.Text))]
					if !ok {
						return nil, "Пожалуйста, выберите вариант с клавиатуры."
					}
					return map[string]string{KeyField: field}, ""
				},
				next: func(vals map[string]string) string {
					if vals[KeyField] == KeyGender {
						return "gender"
					}
					return "value"
				},
			},
			"gender":       genderStep(stepCommit),
			"gender_other": genderOtherStep(stepCommit),
			"value": {
				prompt: func(vals map[string]string) Prompt {
					switch vals[KeyField] {
					case KeyAge:
						return Prompt{Text: "Пожалуйста, введите новый возраст."}
					case KeyCity:
						return Prompt{Text: "Пожалуйста, введите новый город (или 'Any' для всех городов)."}
					case KeyPhoto:
						return Prompt{Text: "Пожалуйста, отправьте новую фотографию профиля."}
					case KeyBio:
						return Prompt{Text: "Пожалуйста, введите новое описание профиля."}
					case KeyAgePreference:
						return Prompt{
							Text:    "Какой возраст вам интересен?",
							Options: bucketLabels(),
						}
					default:
						return Prompt{Text: "Пожалуйста, введите новое имя."}
					}
				},
				validate: func(in Input, vals map[string]string) (map[string]string, string) {
					switch vals[KeyField] {
					case KeyAge:
						return validateAge(KeyValue)(in, vals)
					case KeyCity:
						return validateCity(KeyValue)(in, vals)
					case KeyPhoto:
						return validatePhoto(KeyValue, false)(in, vals)
					case KeyAgePreference:
						updates, errText := validateAgePreference(in, vals)
						if errText != "" {
							return nil, errText
						}
						return map[string]string{KeyValue: updates[KeyAgePreference]}, ""
					default:
						value := strings.TrimSpace(in.Text)
						if value == "" {
							return nil, "Пожалуйста, введите значение текстом."
						}
						return map[string]string{KeyValue: value}, ""
					}
				},
				next: staticNext(stepCommit),
			},
		},
		done: func(vals map[string]string) string {
			switch vals[KeyField] {
			case KeyName:
				return "Ваше имя обновлено на '" + vals[KeyValue] + "'."
			case KeyAge:
				return "Ваш возраст обновлен на '" + vals[KeyValue] + "'."
			case KeyGender:
				return "Ваш пол обновлен."
			case KeyCity:
				city := vals[KeyValue]
				if city == "" {
					city = "Не указан"
				}
				return "Ваш город обновлен на '" + city + "'."
			case KeyPhoto:
				return "Ваша фотография профиля обновлена."
			case KeyAgePreference:
				return "Ваши предпочтения по возрасту обновлены."
			default:
				return "Ваше описание профиля обновлено."
			}
		},
	}
}

func reportFlow() flow {
	return flow{
		kind:  KindReport,
		first: "reason",
		steps: map[string]step{
			"reason": {
				prompt: textPrompt("Пожалуйста, укажите причину жалобы."),
				validate: func(in Input, _ map[string]string) (map[string]string, string) {
					reason := strings.TrimSpace(in.Text)
					if reason == "" {
						return nil, "Пожалуйста, опишите причину жалобы текстом."
					}
					return map[string]string{KeyReason: reason}, ""
				},
				next: staticNext("evidence"),
			},
			"evidence": {
				prompt: func(_ map[string]string) Prompt {
					return Prompt{
						Text:    "Приложите фото-доказательство или нажмите «" + skipLabel + "».",
						Options: []string{skipLabel},
					}
				},
				validate: func(in Input, _ map[string]string) (map[string]string, string) {
					if in.PhotoFileID != "" {
						return map[string]string{KeyEvidence: in.PhotoFileID}, ""
					}
					if strings.EqualFold(strings.TrimSpace(in.Text), skipLabel) {
						return map[string]string{}, ""
					}
					return nil, "Отправьте фотографию или нажмите «" + skipLabel + "»."
				},
				next: staticNext(stepCommit),
			},
		},
		done: func(_ map[string]string) string {
			return "Ваша жалоба принята и будет рассмотрена."
		},
	}
}

func genderStep(after string) step {
	return step{
		prompt: func(_ map[string]string) Prompt {
			return Prompt{
				Text: "Кем вы себя идентифицируете?",
				Options: []string{
					rules.GenderLabel(enums.GenderTransWoman),
					rules.GenderLabel(enums.GenderTransMan),
					rules.GenderLabel(enums.GenderNonBinary),
					rules.GenderLabel(enums.GenderOther),
				},
			}
		},
		validate: func(in Input, _ map[string]string) (map[string]string, string) {
			g, ok := rules.ParseGender(in.Text)
			if !ok {
				return nil, "Пожалуйста, выберите вариант с клавиатуры."
			}
			return map[string]string{KeyGender: string(g)}, ""
		},
		next: func(vals map[string]string) string {
			if vals[KeyGender] == string(enums.GenderOther) {
				return "gender_other"
			}
			return after
		},
	}
}

func genderOtherStep(after string) step {
	return step{
		prompt: textPrompt("Пожалуйста, уточните вашу гендерную идентичность."),
		validate: func(in Input, _ map[string]string) (map[string]string, string) {
			detail := strings.TrimSpace(in.Text)
			if detail == "" {
				return nil, "Пожалуйста, уточните вашу гендерную идентичность текстом."
			}
			return map[string]string{KeyGenderDetail: detail}, ""
		},
		next: staticNext(after),
	}
}

func validateAge(key string) func(Input, map[string]string) (map[string]string, string) {
	return func(in Input, _ map[string]string) (map[string]string, string) {
		age, err := strconv.Atoi(strings.TrimSpace(in.Text))
		if err != nil {
			return nil, "Пожалуйста, введите ваш возраст цифрами."
		}
		if !rules.ValidAge(age) {
			return nil, "Пожалуйста, введите корректный возраст (от 16 до 100 лет)."
		}
		return map[string]string{key: strconv.Itoa(age)}, ""
	}
}

func validateAgePreference(in Input, _ map[string]string) (map[string]string, string) {
	bucket, ok := rules.ParseAgeBucket(strings.TrimSpace(in.Text))
	if !ok {
		return nil, "Пожалуйста, выберите вариант с клавиатуры."
	}
	return map[string]string{KeyAgePreference: bucket.Label}, ""
}

func validateCity(key string) func(Input, map[string]string) (map[string]string, string) {
	return func(in Input, _ map[string]string) (map[string]string, string) {
		city := strings.TrimSpace(in.Text)
		if city == "" && in.PhotoFileID != "" {
			return nil, "Пожалуйста, введите город текстом."
		}
		if strings.EqualFold(city, "any") {
			city = ""
		}
		return map[string]string{key: city}, ""
	}
}

func validatePhoto(key string, allowSkip bool) func(Input, map[string]string) (map[string]string, string) {
	return func(in Input, _ map[string]string) (map[string]string, string) {
		if in.PhotoFileID != "" {
			return map[string]string{key: in.PhotoFileID}, ""
		}
		if allowSkip && strings.EqualFold(strings.TrimSpace(in.Text), skipLabel) {
			return map[string]string{}, ""
		}
		return nil, "Пожалуйста, отправьте фотографию."
	}
}

func bucketLabels() []string {
	buckets := rules.AgeBuckets()
	labels := make([]string, 0, len(buckets))
	for _, b := range buckets {
		labels = append(labels, b.Label)
	}
	return labels
}

func textPrompt(text string) func(map[string]string) Prompt {
	return func(_ map[string]string) Prompt {
		return Prompt{Text: text}
	}
}

func staticNext(id string) func(map[string]string) string {
	return func(_ map[string]string) string {
		return id
	}
}

func isAdult(vals map[string]string) bool {
	if vals[KeyIsAdult] == "true" {
		return true
	}
	age, err := strconv.Atoi(vals[KeyAge])
	if err != nil {
		return false
	}
	return rules.IsAdult(age)
}
