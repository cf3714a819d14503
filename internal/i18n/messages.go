// Package i18n selects the language of user-facing error messages.
package i18n

import (
	"golang.org/x/text/language"

	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
)

var supported = []language.Tag{
	language.English,
	language.Korean,
	language.Japanese,
}

var matcher = language.NewMatcher(supported)

var catalog = map[string]map[language.Tag]string{
	apperr.CodeUnauthenticated: {
		language.English:  "Unauthorized",
		language.Korean:   "인증이 필요합니다.",
		language.Japanese: "認証が必要です。",
	},
	apperr.CodeEmailUnavailable: {
		language.English:  "Email address could not be found.",
		language.Korean:   "이메일 정보를 찾을 수 없습니다.",
		language.Japanese: "メールアドレスが見つかりません。",
	},
	apperr.CodeDenied: {
		language.English:  "You do not have access to this refrigerator.",
		language.Korean:   "접근 권한이 없습니다.",
		language.Japanese: "アクセス権限がありません。",
	},
	apperr.CodeOwnerOnly: {
		language.English:  "Only the refrigerator owner can do this.",
		language.Korean:   "냉장고 소유자만 할 수 있습니다.",
		language.Japanese: "冷蔵庫の所有者のみ実行できます。",
	},
	apperr.CodeRefrigeratorNotFound: {
		language.English:  "Refrigerator not found.",
		language.Korean:   "냉장고를 찾을 수 없습니다.",
		language.Japanese: "冷蔵庫が見つかりません。",
	},
	apperr.CodeCategoryNotFound: {
		language.English:  "Category not found.",
		language.Korean:   "카테고리를 찾을 수 없습니다.",
		language.Japanese: "カテゴリが見つかりません。",
	},
	apperr.CodeIngredientNotFound: {
		language.English:  "Ingredient not found.",
		language.Korean:   "재료를 찾을 수 없습니다.",
		language.Japanese: "食材が見つかりません。",
	},
	apperr.CodeInvitationNotFound: {
		language.English:  "Invitation not found.",
		language.Korean:   "존재하지 않는 초대입니다.",
		language.Japanese: "招待が見つかりません。",
	},
	apperr.CodeMemberNotFound: {
		language.English:  "Member not found.",
		language.Korean:   "멤버를 찾을 수 없습니다.",
		language.Japanese: "メンバーが見つかりません。",
	},
	apperr.CodeRecipeNotFound: {
		language.English:  "Recipe not found.",
		language.Korean:   "레시피를 찾을 수 없습니다.",
		language.Japanese: "レシピが見つかりません。",
	},
	apperr.CodeInvalidID: {
		language.English:  "Invalid ID.",
		language.Korean:   "유효하지 않은 ID입니다.",
		language.Japanese: "無効なIDです。",
	},
	apperr.CodeTranslationRequired: {
		language.English:  "System categories need at least one name.",
		language.Korean:   "시스템 카테고리는 최소 하나의 이름이 필요합니다.",
		language.Japanese: "システムカテゴリには少なくとも1つの名前が必要です。",
	},
	apperr.CodeSelfInvitation: {
		language.English:  "You cannot invite yourself.",
		language.Korean:   "자기 자신을 초대할 수 없습니다.",
		language.Japanese: "自分自身を招待することはできません。",
	},
	apperr.CodeDuplicateInvitation: {
		language.English:  "This user has already been invited.",
		language.Korean:   "이미 초대된 사용자입니다.",
		language.Japanese: "このユーザーはすでに招待されています。",
	},
	apperr.CodeAlreadyMember: {
		language.English:  "This user is already a member.",
		language.Korean:   "이미 공유 중인 사용자입니다.",
		language.Japanese: "このユーザーはすでにメンバーです。",
	},
	apperr.CodeAlreadyProcessed: {
		language.English:  "This invitation has already been processed.",
		language.Korean:   "이미 처리된 초대입니다.",
		language.Japanese: "この招待はすでに処理されています。",
	},
	apperr.CodeAlreadyAccepted: {
		language.English:  "Accepted invitations cannot be cancelled.",
		language.Korean:   "이미 수락된 초대는 취소할 수 없습니다.",
		language.Japanese: "承認済みの招待は取り消せません。",
	},
	apperr.CodeAlreadyFavorited: {
		language.English:  "This recipe is already in your favorites.",
		language.Korean:   "이미 즐겨찾기에 추가된 레시피입니다.",
		language.Japanese: "このレシピはすでにお気に入りに追加されています。",
	},
	apperr.CodeSystemCategoryImmutable: {
		language.English:  "System categories cannot be deleted.",
		language.Korean:   "시스템 카테고리는 삭제할 수 없습니다.",
		language.Japanese: "システムカテゴリは削除できません。",
	},
	apperr.CodeVirtualRefrigeratorExists: {
		language.English:  "Only one virtual refrigerator can be created.",
		language.Korean:   "가상 냉장고는 하나만 생성할 수 있습니다.",
		language.Japanese: "仮想冷蔵庫は1つしか作成できません。",
	},
	apperr.CodeVirtualRefrigeratorUndeletable: {
		language.English:  "Virtual refrigerators cannot be deleted.",
		language.Korean:   "가상 냉장고는 삭제할 수 없습니다.",
		language.Japanese: "仮想冷蔵庫は削除できません。",
	},
	apperr.CodeInternal: {
		language.English:  "Internal Error",
		language.Korean:   "서버 오류가 발생했습니다.",
		language.Japanese: "サーバーエラーが発生しました。",
	},
}

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// Message returns the localized text for err. Validation errors without a
// catalog entry keep their own message, since it names the offending field.
func Message(err error, acceptLanguage string) string {
	code := apperr.CodeOf(err)
	texts, ok := catalog[code]
	if !ok {
		return err.Error()
	}
	if text, ok := texts[Match(acceptLanguage)]; ok {
		return text
	}
	return texts[language.English]
}
