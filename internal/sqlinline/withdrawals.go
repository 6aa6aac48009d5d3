package sqlinline

const QInsertWithdrawal = `--sql 75010617-d399-4eba-a3ea-5937cc6b30f6
insert into withdrawals(campaign_id, seq, beneficiary, amount, reason, created_at)
values ($1::bigint, $2::bigint, $3::text, $4::text::numeric, $5::text, $6::timestamptz);
`

const QListWithdrawals = `--sql b647be33-73ed-4bfd-9f28-e6951cdbed88
select campaign_id, seq, beneficiary, amount::text, reason, created_at
from withdrawals
order by campaign_id, seq;
`
