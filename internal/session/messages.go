package session

import (
	"fmt"

	"github.com/foxseedlab/kikitorin/internal/discord"
)

const (
	slashCommandJoin  = "join"
	slashCommandLeave = "leave"

	slashCommandJoinDescription  = "ボイスチャンネルに参加して音声転写を開始します"
	slashCommandLeaveDescription = "BOTをチャンネルから切断します"

	slashOptionRealtime = "realtime"
	slashOptionReport   = "report"
	slashOptionAudio    = "audio"

	slashOptionRealtimeDescription = "リアルタイムメッセージ送信を有効にする"
	slashOptionReportDescription   = "退室時のレポート出力を有効にする"
	slashOptionAudioDescription    = "退室時のセッション録音の出力を有効にする"

	messageEphemeralGuildOnly       = "このコマンドはサーバー内でのみ使用できます。"
	messageEphemeralUnknownCommand  = "不明なコマンドです。"
	messageEphemeralAlreadyRunning  = "すでにボイスチャンネルに接続しています。"
	messageEphemeralJoinVCFirst     = "貴方はボイスチャンネルに参加していません。"
	messageEphemeralVoiceLookupFail = "ボイスチャンネルの参加状態の確認に失敗しました。"
	messageEphemeralJoinFailed      = "ボイスチャンネルへの接続に失敗しました。"
	messageEphemeralNotRunning      = "ボイスチャンネルに接続していません。"
	messageEphemeralLeaveInProgress = "処理を停止しています。キューの完了後に結果を出力します。"

	messageReportAttachment = "今回のレポート:"
	messageAudioAttachment  = "セッション全体の録音:"
)

func joinedMessage(channelID string) string {
	return fmt.Sprintf("ボイスチャンネル<#%s>に参加しました。", channelID)
}

// SlashCommandDefinitions lists the commands registered at startup.
func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{
			Name:        slashCommandJoin,
			Description: slashCommandJoinDescription,
			BoolOptions: []discord.SlashCommandBoolOption{
				{Name: slashOptionRealtime, Description: slashOptionRealtimeDescription},
				{Name: slashOptionReport, Description: slashOptionReportDescription},
				{Name: slashOptionAudio, Description: slashOptionAudioDescription},
			},
		},
		{
			Name:        slashCommandLeave,
			Description: slashCommandLeaveDescription,
		},
	}
}
