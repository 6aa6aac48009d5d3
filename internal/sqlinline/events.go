package sqlinline

const QInsertEvent = `--sql 450eee72-983d-4895-bde9-edd196099922
insert into ledger_events(seq, id, kind, campaign_id, payload, occurred_at)
values ($1::bigint, $2::text::uuid, $3::text, $4::bigint, $5::text::jsonb, $6::timestamptz);
`

const QLastEventSeq = `--sql fa1d122e-60b1-4dcd-bde3-33ef08ae6d45
select coalesce(max(seq), 0) from ledger_events;
`

const QListEventsSince = `--sql 17f83053-d06d-46b7-8428-891143fe5c3f
select payload::text
from ledger_events
where seq > $1::bigint
order by seq
limit $2::int;
`

const QTryWriterLock = `--sql 2c2a9c8d-a9fe-492c-84d9-af046615ff73
select pg_try_advisory_lock($1::bigint), pg_backend_pid();
`

const QWriterUnlock = `--sql 14a4b49a-21bf-469d-b104-9a5ff61e7b22
select pg_advisory_unlock($1::bigint);
`

const QWriterLockHeld = `--sql ec1b2b39-c9ff-4194-b6de-3cfd9dd03912
select exists (
  select 1 from pg_locks
  where locktype = 'advisory'
    and classid = 0
    and objid = $1::bigint::oid
    and objsubid = 1
    and pid = $2::int
    and granted
);
`
