package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/jackc/pgtype"
)

// AccountRepository persists ledger accounts, one row per account.
type AccountRepository struct {
	client *Client
}

func NewAccountRepository(client *Client) (*AccountRepository, error) {
	repository := &AccountRepository{client}

	if err := repository.ensureSchema(); err != nil {
		return nil, fmt.Errorf("could not ensure accounts schema: [%v]", err)
	}

	return repository, nil
}

func (ar *AccountRepository) ensureSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS virtual_account (
		id BIGINT PRIMARY KEY,
		holder_name TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		start_balance NUMERIC NOT NULL DEFAULT 0,
		balance NUMERIC NOT NULL DEFAULT 0,
		absolute_stop_loss NUMERIC NOT NULL DEFAULT 0,
		absolute_take_profit NUMERIC NOT NULL DEFAULT 0,
		kelly_attenuation_multiplier NUMERIC NOT NULL DEFAULT 0,
		kelly_attenuation_limiter NUMERIC NOT NULL DEFAULT 0,
		payout_limiter NUMERIC NOT NULL DEFAULT 0,
		winrate_limiter NUMERIC NOT NULL DEFAULT 0,
		list_strategies TEXT NOT NULL DEFAULT '',
		demo BOOLEAN NOT NULL DEFAULT FALSE,
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		start_timestamp BIGINT NOT NULL DEFAULT 0,
		timestamp BIGINT NOT NULL DEFAULT 0,
		wins BIGINT NOT NULL DEFAULT 0,
		losses BIGINT NOT NULL DEFAULT 0,
		daily_balance TEXT NOT NULL DEFAULT '{}'
	)`

	_, err := ar.client.instance().Exec(schema)
	return err
}

func (ar *AccountRepository) CreateAccount(account *openbo.Account) error {
	query := `INSERT INTO
		virtual_account (id, holder_name, note, start_balance, balance,
		                 absolute_stop_loss, absolute_take_profit,
		                 kelly_attenuation_multiplier, kelly_attenuation_limiter,
		                 payout_limiter, winrate_limiter, list_strategies,
		                 demo, enabled, start_timestamp, timestamp,
		                 wins, losses, daily_balance)
		VALUES (:id, :holder_name, :note, :start_balance, :balance,
		        :absolute_stop_loss, :absolute_take_profit,
		        :kelly_attenuation_multiplier, :kelly_attenuation_limiter,
		        :payout_limiter, :winrate_limiter, :list_strategies,
		        :demo, :enabled, :start_timestamp, :timestamp,
		        :wins, :losses, :daily_balance)`

	accountRow, err := new(accountRow).wrap(account)
	if err != nil {
		return fmt.Errorf(
			"could not convert account [%v] to pg row: [%v]",
			account.ID,
			err,
		)
	}

	_, err = ar.client.instance().NamedExec(query, accountRow)
	if err != nil {
		return fmt.Errorf(
			"could not execute command for account [%v]: [%v]",
			account.ID,
			err,
		)
	}

	return nil
}

func (ar *AccountRepository) UpdateAccount(account *openbo.Account) error {
	query := `UPDATE virtual_account SET
		holder_name = :holder_name,
		note = :note,
		start_balance = :start_balance,
		balance = :balance,
		absolute_stop_loss = :absolute_stop_loss,
		absolute_take_profit = :absolute_take_profit,
		kelly_attenuation_multiplier = :kelly_attenuation_multiplier,
		kelly_attenuation_limiter = :kelly_attenuation_limiter,
		payout_limiter = :payout_limiter,
		winrate_limiter = :winrate_limiter,
		list_strategies = :list_strategies,
		demo = :demo,
		enabled = :enabled,
		start_timestamp = :start_timestamp,
		timestamp = :timestamp,
		wins = :wins,
		losses = :losses,
		daily_balance = :daily_balance
		WHERE id = :id`

	accountRow, err := new(accountRow).wrap(account)
	if err != nil {
		return fmt.Errorf(
			"could not convert account [%v] to pg row: [%v]",
			account.ID,
			err,
		)
	}

	_, err = ar.client.instance().NamedExec(query, accountRow)
	if err != nil {
		return fmt.Errorf(
			"could not execute command for account [%v]: [%v]",
			account.ID,
			err,
		)
	}

	return nil
}

func (ar *AccountRepository) DeleteAccount(accountID uint64) error {
	query := `DELETE FROM virtual_account WHERE id = $1`

	_, err := ar.client.instance().Exec(query, int64(accountID))
	if err != nil {
		return fmt.Errorf(
			"could not execute command for account [%v]: [%v]",
			accountID,
			err,
		)
	}

	return nil
}

func (ar *AccountRepository) Accounts() ([]*openbo.Account, error) {
	var selectResult []accountRow

	query := `SELECT * FROM virtual_account ORDER BY id ASC`

	err := ar.client.instance().Select(&selectResult, query)
	if err != nil {
		return nil, fmt.Errorf("could not execute query: [%v]", err)
	}

	accounts := make([]*openbo.Account, 0, len(selectResult))

	for _, result := range selectResult {
		account, err := result.unwrap()
		if err != nil {
			return nil, fmt.Errorf(
				"could not convert account [%v] from pg row: [%v]",
				result.ID,
				err,
			)
		}

		accounts = append(accounts, account)
	}

	return accounts, nil
}

type accountRow struct {
	ID                         int64          `db:"id"`
	HolderName                 string         `db:"holder_name"`
	Note                       string         `db:"note"`
	StartBalance               pgtype.Numeric `db:"start_balance"`
	Balance                    pgtype.Numeric `db:"balance"`
	AbsoluteStopLoss           pgtype.Numeric `db:"absolute_stop_loss"`
	AbsoluteTakeProfit         pgtype.Numeric `db:"absolute_take_profit"`
	KellyAttenuationMultiplier pgtype.Numeric `db:"kelly_attenuation_multiplier"`
	KellyAttenuationLimiter    pgtype.Numeric `db:"kelly_attenuation_limiter"`
	PayoutLimiter              pgtype.Numeric `db:"payout_limiter"`
	WinrateLimiter             pgtype.Numeric `db:"winrate_limiter"`
	ListStrategies             string         `db:"list_strategies"`
	Demo                       bool           `db:"demo"`
	Enabled                    bool           `db:"enabled"`
	StartTimestamp             int64          `db:"start_timestamp"`
	Timestamp                  int64          `db:"timestamp"`
	Wins                       int64          `db:"wins"`
	Losses                     int64          `db:"losses"`
	DailyBalance               string         `db:"daily_balance"`
}

func (ar *accountRow) wrap(account *openbo.Account) (*accountRow, error) {
	startBalance, err := floatToNumeric(account.StartBalance)
	if err != nil {
		return nil, err
	}

	balance, err := floatToNumeric(account.Balance)
	if err != nil {
		return nil, err
	}

	absoluteStopLoss, err := floatToNumeric(account.AbsoluteStopLoss)
	if err != nil {
		return nil, err
	}

	absoluteTakeProfit, err := floatToNumeric(account.AbsoluteTakeProfit)
	if err != nil {
		return nil, err
	}

	kellyMultiplier, err := floatToNumeric(account.KellyAttenuationMultiplier)
	if err != nil {
		return nil, err
	}

	kellyLimiter, err := floatToNumeric(account.KellyAttenuationLimiter)
	if err != nil {
		return nil, err
	}

	payoutLimiter, err := floatToNumeric(account.PayoutLimiter)
	if err != nil {
		return nil, err
	}

	winrateLimiter, err := floatToNumeric(account.WinrateLimiter)
	if err != nil {
		return nil, err
	}

	dailyBalance, err := marshalDailyBalance(account.DailyBalance)
	if err != nil {
		return nil, err
	}

	ar.ID = int64(account.ID)
	ar.HolderName = account.HolderName
	ar.Note = account.Note
	ar.StartBalance = startBalance
	ar.Balance = balance
	ar.AbsoluteStopLoss = absoluteStopLoss
	ar.AbsoluteTakeProfit = absoluteTakeProfit
	ar.KellyAttenuationMultiplier = kellyMultiplier
	ar.KellyAttenuationLimiter = kellyLimiter
	ar.PayoutLimiter = payoutLimiter
	ar.WinrateLimiter = winrateLimiter
	ar.ListStrategies = openbo.JoinStrategies(account.Strategies)
	ar.Demo = account.Demo
	ar.Enabled = account.Enabled
	ar.StartTimestamp = account.StartTimestamp.Unix()
	ar.Timestamp = account.Timestamp.Unix()
	ar.Wins = int64(account.Wins)
	ar.Losses = int64(account.Losses)
	ar.DailyBalance = dailyBalance

	return ar, nil
}

func (ar *accountRow) unwrap() (*openbo.Account, error) {
	startBalance, err := numericToFloat(ar.StartBalance)
	if err != nil {
		return nil, err
	}

	balance, err := numericToFloat(ar.Balance)
	if err != nil {
		return nil, err
	}

	absoluteStopLoss, err := numericToFloat(ar.AbsoluteStopLoss)
	if err != nil {
		return nil, err
	}

	absoluteTakeProfit, err := numericToFloat(ar.AbsoluteTakeProfit)
	if err != nil {
		return nil, err
	}

	kellyMultiplier, err := numericToFloat(ar.KellyAttenuationMultiplier)
	if err != nil {
		return nil, err
	}

	kellyLimiter, err := numericToFloat(ar.KellyAttenuationLimiter)
	if err != nil {
		return nil, err
	}

	payoutLimiter, err := numericToFloat(ar.PayoutLimiter)
	if err != nil {
		return nil, err
	}

	winrateLimiter, err := numericToFloat(ar.WinrateLimiter)
	if err != nil {
		return nil, err
	}

	dailyBalance, err := unmarshalDailyBalance(ar.DailyBalance)
	if err != nil {
		return nil, err
	}

	return &openbo.Account{
		ID:                         uint64(ar.ID),
		HolderName:                 ar.HolderName,
		Note:                       ar.Note,
		StartBalance:               startBalance,
		Balance:                    balance,
		AbsoluteStopLoss:           absoluteStopLoss,
		AbsoluteTakeProfit:         absoluteTakeProfit,
		KellyAttenuationMultiplier: kellyMultiplier,
		KellyAttenuationLimiter:    kellyLimiter,
		PayoutLimiter:              payoutLimiter,
		WinrateLimiter:             winrateLimiter,
		Wins:                       uint64(ar.Wins),
		Losses:                     uint64(ar.Losses),
		Strategies:                 openbo.ParseStrategies(ar.ListStrategies),
		Demo:                       ar.Demo,
		Enabled:                    ar.Enabled,
		StartTimestamp:             time.Unix(ar.StartTimestamp, 0).UTC(),
		Timestamp:                  time.Unix(ar.Timestamp, 0).UTC(),
		PendingStakes:              make(map[string]openbo.PendingStake),
		DailyBalance:               dailyBalance,
	}, nil
}

func marshalDailyBalance(history map[int64]float64) (string, error) {
	encoded := make(map[string]float64, len(history))
	for bucket, balance := range history {
		encoded[strconv.FormatInt(bucket, 10)] = balance
	}

	data, err := json.Marshal(encoded)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func unmarshalDailyBalance(data string) (map[int64]float64, error) {
	if len(data) == 0 {
		return make(map[int64]float64), nil
	}

	encoded := make(map[string]float64)
	if err := json.Unmarshal([]byte(data), &encoded); err != nil {
		return nil, err
	}

	history := make(map[int64]float64, len(encoded))
	for key, balance := range encoded {
		bucket, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, err
		}

		history[bucket] = balance
	}

	return history, nil
}
